// Package language implements the read-only language descriptor table
// (spec.md §3 "Language"). It is consumed by task types as a closed,
// externally-defined registry; this package does not implement a
// compiler toolchain — it only knows how to name the commands the
// sandbox driver will run.
package language

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Language is a read-only descriptor: name; source/header/object
// extensions (first source extension is canonical); possibly-empty
// executable extension; and the two command-generating functions.
type Language struct {
	Name                string
	SourceExtensions    []string
	HeaderExtensions    []string
	ObjectExtensions    []string
	ExecutableExtension string

	// MinToolchain, if non-nil, is an optional semver constraint this
	// language's toolchain version must satisfy — a SPEC_FULL.md
	// addition mirroring the teacher's per-runtime *semver.Version field.
	// It is read only by ToolchainSatisfies; the built-in languages leave
	// it nil, and no task type or task parameter checks it.
	MinToolchain *semver.Constraints

	compile func(sources []string, executable string, forEvaluation bool) [][]string
	execute func(executable string, main string, args []string) [][]string
}

// CanonicalExtension is the first (canonical) source extension.
func (l *Language) CanonicalExtension() string {
	if len(l.SourceExtensions) == 0 {
		return ""
	}
	return l.SourceExtensions[0]
}

// CompilationCommands returns one outer slice element per sequential
// command (e.g. compile then package), per spec.md §3.
func (l *Language) CompilationCommands(sources []string, executable string) [][]string {
	return l.compile(sources, executable, true)
}

// EvaluationCommands returns the command(s) needed to run executable,
// optionally invoking a different main entry point and/or extra args
// (used by Communication's stub/fifo argument wiring).
func (l *Language) EvaluationCommands(executable string, main string, args []string) [][]string {
	return l.execute(executable, main, args)
}

// ToolchainSatisfies reports whether version satisfies MinToolchain, or
// true when no constraint is configured.
func (l *Language) ToolchainSatisfies(version string) (bool, error) {
	if l.MinToolchain == nil {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return l.MinToolchain.Check(v), nil
}

// ReplaceLanguageWildcard substitutes "%l" in name with the language's
// canonical source extension stripped of its leading dot, per spec.md
// §4.F's "The %l placeholder is replaced by the language's canonical
// source extension at compile time."
func (l *Language) ReplaceLanguageWildcard(name string) string {
	ext := strings.TrimPrefix(l.CanonicalExtension(), ".")
	return strings.ReplaceAll(name, "%l", ext)
}

// StripSourceExtension strips filename's extension, returning the bare
// codename — used to derive an executable's name from its sole source
// file.
func (l *Language) StripSourceExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext)
}

var (
	mu       sync.RWMutex
	registry = map[string]*Language{}
)

// Register adds (or replaces) a language in the process-wide registry.
func Register(l *Language) {
	mu.Lock()
	defer mu.Unlock()
	registry[l.Name] = l
}

// Lookup returns the language by name, or (nil, false).
func Lookup(name string) (*Language, bool) {
	mu.RLock()
	defer mu.RUnlock()
	l, ok := registry[name]
	return l, ok
}

func init() {
	Register(cpp17())
	Register(python3())
}

// cpp17 is grounded on original_source/cms/grading/languages/cpp17_gpp.py.
func cpp17() *Language {
	return &Language{
		Name:             "C++17 / g++",
		SourceExtensions: []string{".cpp", ".cc", ".cxx", ".c++", ".C"},
		HeaderExtensions: []string{".h"},
		ObjectExtensions: []string{".o"},
		compile: func(sources []string, executable string, forEvaluation bool) [][]string {
			cmd := []string{"/usr/bin/g++"}
			if forEvaluation {
				cmd = append(cmd, "-DEVAL")
			}
			cmd = append(cmd, "-std=gnu++17", "-O2", "-pipe", "-static", "-s", "-o", executable)
			cmd = append(cmd, sources...)
			return [][]string{cmd}
		},
		execute: func(executable, main string, args []string) [][]string {
			return [][]string{append([]string{"./" + executable}, args...)}
		},
	}
}

// python3 is grounded on
// original_source/cms/grading/languages/python3_cpython.py.
func python3() *Language {
	const mainFilename = "__main__.pyc"
	return &Language{
		Name:                "Python 3 / CPython",
		SourceExtensions:    []string{".py"},
		ExecutableExtension: ".pyz",
		compile: func(sources []string, executable string, forEvaluation bool) [][]string {
			var commands [][]string
			commands = append(commands, []string{"/usr/bin/python3", "-m", "compileall", "-b", "."})
			var filesToPackage []string
			for i, src := range sources {
				base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
				pyc := base + ".pyc"
				if i == 0 {
					commands = append(commands, []string{"/bin/mv", pyc, mainFilename})
					filesToPackage = append(filesToPackage, mainFilename)
				} else {
					filesToPackage = append(filesToPackage, pyc)
				}
			}
			commands = append(commands, append([]string{"/usr/bin/zip", executable}, filesToPackage...))
			return commands
		},
		execute: func(executable, main string, args []string) [][]string {
			return [][]string{append([]string{"/usr/bin/python3", executable}, args...)}
		},
	}
}

// Validate is a defensive sanity check used on process startup: every
// registered language must declare at least one source extension.
func Validate() error {
	mu.RLock()
	defer mu.RUnlock()
	for name, l := range registry {
		if len(l.SourceExtensions) == 0 {
			return fmt.Errorf("language %s declares no source extensions", name)
		}
	}
	return nil
}
