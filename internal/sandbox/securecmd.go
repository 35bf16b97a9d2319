package sandbox

// secureCommands is the hard-coded allow-list of setup commands that run
// directly on the host instead of going through the isolate helper. They
// are safe only because dataset admins fully control their arguments;
// contestant input never reaches them. Retained verbatim from
// original_source per spec.md §9's open question.
var secureCommands = map[string]bool{
	"/bin/cp":        true,
	"/bin/mv":        true,
	"/usr/bin/zip":   true,
	"/usr/bin/unzip": true,
}

func isSecureCommand(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	return secureCommands[argv[0]]
}
