// Package sandbox implements the sandbox driver (spec component A): a
// uniform API around the external isolate helper that enforces CPU, wall,
// memory, file-size, process-count and filesystem-visibility limits, and
// parses the helper's post-run meta log into a classified exit status.
//
// Grounded on hellobyte-dev-coderunr's api/internal/job/job.go (argv
// construction, box directory lifecycle, stdin/stdout draining) and
// original_source/cms/grading/Sandbox.py's IsolateSandbox (option set,
// box-id allocation, secure-commands carve-out, exit status
// classification).
package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/stats"
)

// HelperPath is the location of the isolate binary. Overridable for
// tests.
var HelperPath = "/usr/local/bin/isolate"

const homeDirName = "home"
const innerHome = "/box"

// DirMapping describes one --dir=<inner>=<outer>:<options> mapping.
type DirMapping struct {
	Inner   string
	Outer   string // empty means "no outer source, inner-only tmpfs-style mapping"
	Options string
}

// Options configures one invocation of execute inside the sandbox.
type Options struct {
	// Resource limits. Zero/false means "not set" unless noted.
	CPUTimeLimitS     float64
	WallTimeLimitS    float64
	ExtraTimeS        float64
	MemoryLimitBytes  int64 // <0 means unlimited: omit --cg-mem
	StackLimitBytes   int64
	FileSizeBytes     int64
	MaxProcesses      int // 0 means unlimited (bare --processes)
	PreserveEnv       bool
	InheritEnv        []string
	SetEnv            map[string]string
	Dirs              []DirMapping
	StdinFile         string // inner path, empty = none
	StdoutFile        string // inner path, empty = none
	StderrFile        string // inner path, empty = none
	Verbosity         int
}

// ChildHandle represents a non-blocking sandboxed run in flight.
type ChildHandle struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	stderr    io.ReadCloser
	sandbox   *Sandbox
	execNum   int
	isSecure  bool
	waitOnce  sync.Once
	waitErr   error
}

// Stdin returns the write side of the helper's stdin pipe, or nil for a
// secure command launched directly on the host.
func (h *ChildHandle) Stdin() io.WriteCloser { return h.stdin }

// Stdout / Stderr expose the piped streams for draining.
func (h *ChildHandle) Stdout() io.ReadCloser { return h.stdout }
func (h *ChildHandle) Stderr() io.ReadCloser { return h.stderr }

// Wait blocks until the child exits and records its outcome. Safe to
// call multiple times; only the first call actually waits.
func (h *ChildHandle) Wait() error {
	h.waitOnce.Do(func() {
		h.waitErr = h.cmd.Wait()
	})
	return h.waitErr
}

// Sandbox owns one instance's outer directory, box id, and run history.
type Sandbox struct {
	log *logrus.Logger

	boxID      int32
	outerDir   string
	homeDir    string
	tag        string
	execNum    int
	cmdLogPath string

	lastMeta    meta
	lastHasMeta bool

	stdoutFile string
	stderrFile string

	extraDirs    []DirMapping
	writableOnly []string
}

// New allocates a fresh outer directory under root, creates its home
// directory, assigns boxID, and issues the helper's --init command.
func New(root string, boxID int32, tag string, log *logrus.Logger) (*Sandbox, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if tag == "" {
		tag = uuid.NewString()
	}
	outer := filepath.Join(root, fmt.Sprintf("box-%d-%s", boxID, tag))
	if err := os.MkdirAll(outer, 0o755); err != nil {
		return nil, &SandboxCreationError{Reason: err.Error()}
	}

	sb := &Sandbox{
		log:        log,
		boxID:      boxID,
		outerDir:   outer,
		tag:        tag,
		cmdLogPath: filepath.Join(outer, "commands.log"),
	}

	cmd := exec.Command(HelperPath, fmt.Sprintf("--box-id=%d", boxID), "--cg", "--init")
	out, err := cmd.Output()
	if err != nil {
		return nil, &SandboxCreationError{Reason: err.Error()}
	}
	sb.homeDir = filepath.Join(trimNewline(string(out)), homeDirName)
	if err := os.MkdirAll(sb.homeDir, 0o770); err != nil {
		return nil, &SandboxCreationError{Reason: err.Error()}
	}
	return sb, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// BoxID returns the sandbox's numeric id.
func (s *Sandbox) BoxID() int32 { return s.boxID }

// HomeDir is the outer-visible path to the contestant-visible directory.
func (s *Sandbox) HomeDir() string { return s.homeDir }

// AddMappedDirectory records an extra --dir mapping that will be included
// on every subsequent execution, e.g. binding a per-testcase fifo
// directory into a Communication user sandbox. ignoreMissing skips the
// mapping (without error) when the outer path does not exist.
func (s *Sandbox) AddMappedDirectory(outer, inner, options string, ignoreMissing bool) error {
	if ignoreMissing {
		if _, err := os.Stat(outer); err != nil {
			return nil
		}
	}
	if inner == "" {
		inner = outer
	}
	s.extraDirs = append(s.extraDirs, DirMapping{Inner: inner, Outer: outer, Options: options})
	return nil
}

// AllowWritingOnly restricts the set of inner paths writable during the
// next run to exactly innerPaths; paths outside home are silently
// ignored, matching spec.md §4.A. Enforced by allowWriting via a chmod
// pass over the home directory ahead of the next run.
func (s *Sandbox) AllowWritingOnly(innerPaths []string) {
	s.writableOnly = innerPaths
}

func (s *Sandbox) innerPath(path string) string {
	return filepath.Join(innerHome, path)
}

func (s *Sandbox) outerPath(path string) string {
	return filepath.Join(s.homeDir, path)
}

// CreateFileFromBytes stages data at path inside the sandbox home.
// Files are created without execute permission unless executable is set.
func (s *Sandbox) CreateFileFromBytes(path string, data []byte, executable bool) error {
	full := s.outerPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o770); err != nil {
		return &SandboxIOError{Op: "mkdir", Path: path, Err: err}
	}
	mode := os.FileMode(0o660)
	if executable {
		mode = 0o770
	}
	if err := os.WriteFile(full, data, mode); err != nil {
		return &SandboxIOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// CreateFileFromDigest stages a file retrieved from the file cacher.
type DigestGetter interface {
	Get(digest string) ([]byte, error)
}

func (s *Sandbox) CreateFileFromDigest(cacher DigestGetter, path, digest string, executable bool) error {
	data, err := cacher.Get(digest)
	if err != nil {
		return &SandboxIOError{Op: "get-digest", Path: path, Err: err}
	}
	return s.CreateFileFromBytes(path, data, executable)
}

// FileExists reports whether path exists inside the sandbox home.
func (s *Sandbox) FileExists(path string) bool {
	_, err := os.Stat(s.outerPath(path))
	return err == nil
}

// GetFileToBytes reads path, optionally truncated to maxLen bytes.
func (s *Sandbox) GetFileToBytes(path string, maxLen int64) ([]byte, error) {
	f, err := os.Open(s.outerPath(path))
	if err != nil {
		return nil, &SandboxIOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	if maxLen <= 0 {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, &SandboxIOError{Op: "read", Path: path, Err: err}
		}
		return data, nil
	}
	tr := NewTruncator(f, maxLen)
	data, err := io.ReadAll(tr)
	if err != nil {
		return nil, &SandboxIOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// GetFileText is GetFileToBytes decoded as a string.
func (s *Sandbox) GetFileText(path string, maxLen int64) (string, error) {
	b, err := s.GetFileToBytes(path, maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFile implements stats.MetaSource for collectOutput reads.
func (s *Sandbox) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(s.outerPath(path))
}

// allowWriting applies the write-permission contract for the upcoming
// run. With no writableOnly set, it is a blanket allow_writing_all /
// allow_writing_none over the whole home directory; with writableOnly
// set, only those inner paths are left writable, matching
// allow_writing_only in the original.
func (s *Sandbox) allowWriting(writable bool) error {
	if writable && len(s.writableOnly) > 0 {
		return s.allowWritingOnly(s.writableOnly)
	}
	mode := os.FileMode(0o755)
	if writable {
		mode = 0o777
	}
	return s.chmodHomeTree(mode)
}

// chmodHomeTree chmods the home directory and its direct children,
// matching allow_writing_all/allow_writing_none's os.listdir loop.
func (s *Sandbox) chmodHomeTree(mode os.FileMode) error {
	if err := os.Chmod(s.homeDir, mode); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.homeDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Chmod(filepath.Join(s.homeDir, e.Name()), mode); err != nil {
			return err
		}
	}
	return nil
}

// allowWritingOnly restricts writability to exactly innerPaths, resolved
// relative to the sandbox's inner home and mapped to their outer path;
// paths that escape the inner home are ignored, matching the original's
// commonpath check. Missing paths are touched first so the chmod below
// has something to land on.
func (s *Sandbox) allowWritingOnly(innerPaths []string) error {
	var outerPaths []string
	for _, inner := range innerPaths {
		rel, err := filepath.Rel(innerHome, filepath.Join(innerHome, inner))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		outerPaths = append(outerPaths, filepath.Join(s.homeDir, rel))
	}

	for _, p := range outerPaths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			f, ferr := os.Create(p)
			if ferr != nil {
				return ferr
			}
			f.Close()
		}
	}

	if err := s.chmodHomeTree(0o755); err != nil {
		return err
	}
	for _, p := range outerPaths {
		if err := os.Chmod(p, 0o722); err != nil {
			return err
		}
	}
	return nil
}

func buildArgv(boxID int32, opts Options, execNum int, metaPath string) []string {
	args := []string{"--cg", fmt.Sprintf("--box-id=%d", boxID)}
	for _, d := range opts.Dirs {
		s := d.Inner
		if d.Outer != "" {
			s += "=" + d.Outer
		}
		if d.Options != "" {
			s += ":" + d.Options
		}
		args = append(args, "--dir="+s)
	}
	if opts.PreserveEnv {
		args = append(args, "--full-env")
	}
	for _, v := range opts.InheritEnv {
		args = append(args, "--env="+v)
	}
	for k, v := range opts.SetEnv {
		args = append(args, fmt.Sprintf("--env=%s=%s", k, v))
	}
	if opts.FileSizeBytes > 0 {
		args = append(args, fmt.Sprintf("--fsize=%d", opts.FileSizeBytes/1024))
	}
	if opts.StdinFile != "" {
		args = append(args, "--stdin="+opts.StdinFile)
	}
	if opts.StackLimitBytes > 0 {
		args = append(args, fmt.Sprintf("--stack=%d", opts.StackLimitBytes/1024))
	}
	if opts.MemoryLimitBytes >= 0 {
		args = append(args, fmt.Sprintf("--cg-mem=%d", opts.MemoryLimitBytes/1024))
	}
	if opts.StdoutFile != "" {
		args = append(args, "--stdout="+opts.StdoutFile)
	}
	if opts.MaxProcesses > 0 {
		args = append(args, fmt.Sprintf("--processes=%d", opts.MaxProcesses))
	} else {
		args = append(args, "--processes")
	}
	if opts.StderrFile != "" {
		args = append(args, "--stderr="+opts.StderrFile)
	}
	if opts.CPUTimeLimitS > 0 {
		args = append(args, fmt.Sprintf("--time=%g", opts.CPUTimeLimitS))
	}
	for i := 0; i < opts.Verbosity; i++ {
		args = append(args, "--verbose")
	}
	if opts.WallTimeLimitS > 0 {
		args = append(args, fmt.Sprintf("--wall-time=%g", opts.WallTimeLimitS))
	}
	args = append(args, fmt.Sprintf("--extra-time=%g", opts.ExtraTimeS))
	args = append(args, "--meta="+metaPath)
	args = append(args, "--run")
	return args
}

func (s *Sandbox) appendCommandLog(line string) {
	f, err := os.OpenFile(s.cmdLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

func (s *Sandbox) metaPath(execNum int) string {
	return filepath.Join(s.outerDir, fmt.Sprintf("run.log.%d", execNum))
}

func (s *Sandbox) writeEmptyMeta(execNum int) error {
	content := "time:0.000\ntime-wall:0.000\nmax-rss:0\ncg-mem:0\n"
	return os.WriteFile(s.metaPath(execNum), []byte(content), 0o644)
}

// ExecuteWithoutStd runs argv against the sandbox. When wait is true it
// blocks until completion and returns (helperOK, nil); the inner
// program's own success/failure is read separately via the post-run
// accessors. When wait is false it returns a ChildHandle with piped
// stdin/stdout/stderr that the caller must later join via WaitAndDrain.
func (s *Sandbox) ExecuteWithoutStd(argv []string, opts Options, wait bool) (bool, *ChildHandle, error) {
	s.execNum++
	execNum := s.execNum
	metaPath := s.metaPath(execNum)
	s.stdoutFile = opts.StdoutFile
	s.stderrFile = opts.StderrFile

	if isSecureCommand(argv) {
		return s.executeSecure(argv, execNum, wait)
	}

	if len(s.extraDirs) > 0 {
		opts.Dirs = append(append([]DirMapping{}, opts.Dirs...), s.extraDirs...)
	}

	fullArgv := append([]string{HelperPath}, buildArgv(s.boxID, opts, execNum, metaPath)...)
	fullArgv = append(fullArgv, "--")
	fullArgv = append(fullArgv, argv...)
	s.appendCommandLog(fmt.Sprintf("%v", fullArgv))

	if err := s.allowWriting(true); err != nil {
		return false, nil, &SandboxIOError{Op: "chmod", Path: s.homeDir, Err: err}
	}
	cmd := exec.Command(fullArgv[0], fullArgv[1:]...)
	if err := s.allowWriting(false); err != nil {
		return false, nil, &SandboxIOError{Op: "chmod", Path: s.homeDir, Err: err}
	}

	if wait {
		err := cmd.Run()
		ok, helperErr := s.interpretHelperExit(cmd, err)
		s.invalidateMeta()
		return ok, nil, helperErr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return false, nil, &SandboxIOError{Op: "stdin-pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, nil, &SandboxIOError{Op: "stdout-pipe", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return false, nil, &SandboxIOError{Op: "stderr-pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return false, nil, &SandboxIOError{Op: "start", Err: err}
	}
	s.invalidateMeta()
	return true, &ChildHandle{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr, sandbox: s, execNum: execNum}, nil
}

func (s *Sandbox) executeSecure(argv []string, execNum int, wait bool) (bool, *ChildHandle, error) {
	s.appendCommandLog(fmt.Sprintf("%v (secure)", argv))
	if err := s.allowWriting(true); err != nil {
		return false, nil, &SandboxIOError{Op: "chmod", Path: s.homeDir, Err: err}
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.homeDir

	if wait {
		err := cmd.Run()
		_ = s.allowWriting(false)
		_ = s.writeEmptyMeta(execNum)
		s.invalidateMeta()
		if err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				return true, nil, nil
			}
			return false, nil, &SandboxIOError{Op: "run-secure", Err: err}
		}
		return true, nil, nil
	}

	if err := cmd.Start(); err != nil {
		_ = s.allowWriting(false)
		return false, nil, &SandboxIOError{Op: "start-secure", Err: err}
	}
	_ = s.allowWriting(false)
	_ = s.writeEmptyMeta(execNum)
	s.invalidateMeta()
	return true, &ChildHandle{cmd: cmd, sandbox: s, execNum: execNum, isSecure: true}, nil
}

func (s *Sandbox) interpretHelperExit(cmd *exec.Cmd, runErr error) (bool, error) {
	code := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			return false, &SandboxIOError{Op: "run", Err: runErr}
		}
	}
	switch code {
	case 0, 1:
		return true, nil
	case 2:
		return false, nil
	default:
		return false, &SandboxInterfaceError{ExitCode: code}
	}
}

func (s *Sandbox) invalidateMeta() {
	s.lastHasMeta = false
}

// ensureMetaLoaded parses the current exec_num's meta file on first
// access after each spawn, per spec.md §9's "explicit on-demand parse".
func (s *Sandbox) ensureMetaLoaded() {
	if s.lastHasMeta {
		return
	}
	raw, err := os.ReadFile(s.metaPath(s.execNum))
	if err != nil {
		s.lastMeta = meta{}
		s.lastHasMeta = true
		return
	}
	s.lastMeta = parseMeta(raw)
	s.lastHasMeta = true
}

func (s *Sandbox) CPUTime() (float64, bool) {
	s.ensureMetaLoaded()
	return s.lastMeta.cpuTime, s.lastMeta.hasCPUTime
}

func (s *Sandbox) WallTime() (float64, bool) {
	s.ensureMetaLoaded()
	return s.lastMeta.wallTime, s.lastMeta.hasWallTime
}

func (s *Sandbox) MemoryBytes() (uint64, bool) {
	s.ensureMetaLoaded()
	return s.lastMeta.memoryBytes, s.lastMeta.hasMemory
}

func (s *Sandbox) KillingSignal() (int, bool) {
	s.ensureMetaLoaded()
	if !s.lastMeta.hasSignal {
		return 0, false
	}
	return s.lastMeta.exitSignal, true
}

func (s *Sandbox) ExitCode() (int, bool) {
	s.ensureMetaLoaded()
	return s.lastMeta.exitCode, s.lastMeta.hasExitCode
}

func (s *Sandbox) ExitStatus() stats.ExitStatus {
	s.ensureMetaLoaded()
	return s.lastMeta.classify()
}

func (s *Sandbox) HumanExitDescription() string {
	s.ensureMetaLoaded()
	return s.lastMeta.humanExitDescription()
}

// StdoutPath / StderrPath satisfy stats.MetaSource when the caller has
// configured a redirect via Options.StdoutFile/StderrFile. When no
// redirect was configured (e.g. a piped non-blocking run), ok is false
// and the caller should read from the ChildHandle's pipes instead.
func (s *Sandbox) StdoutPath() (string, bool) {
	if s.stdoutFile == "" {
		return "", false
	}
	return s.outerPath(s.stdoutFile), true
}

func (s *Sandbox) StderrPath() (string, bool) {
	if s.stderrFile == "" {
		return "", false
	}
	return s.outerPath(s.stderrFile), true
}

// Cleanup tears down the sandbox. With delete=true it widens the home
// directory's permissions (so files the contestant uid created can be
// removed), issues a helper --cleanup, then removes the outer directory
// entirely. With delete=false the directory tree is left on disk for
// post-mortem inspection.
func (s *Sandbox) Cleanup(delete bool) error {
	if !delete {
		return nil
	}
	_ = s.chmodHomeTree(0o777)
	cmd := exec.Command(HelperPath, fmt.Sprintf("--box-id=%d", s.boxID), "--cg", "--cleanup")
	_ = cmd.Run()
	if err := os.RemoveAll(s.outerDir); err != nil {
		return &SandboxIOError{Op: "cleanup", Path: s.outerDir, Err: err}
	}
	return nil
}
