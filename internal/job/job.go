// Package job implements the job model (spec component E): the two wire
// records a task type consumes and fills in, CompilationJob and
// EvaluationJob, each carrying inputs plus the outputs a grading run
// accumulates.
//
// Grounded on original_source/cms/grading/Job.py for the wire shape
// (filename-keyed maps in memory, JSON arrays on the wire) but the field
// set follows spec.md's per-testcase EvaluationJob rather than Job.py's
// older multi-testcase one: spec.md is explicit that one job covers one
// testcase, so there is no `testcases` map here, only a single
// `input_digest`/`correct_output_digest`/`operation` tuple.
package job

import (
	"encoding/json"
	"fmt"

	"github.com/coderunr/gradecore/internal/stats"
)

// File is the (logical filename, digest) pair shared by files, managers
// and executables; which role it plays is determined only by the map it
// lives in, per spec.md §3.
type File struct {
	Name   string `json:"filename"`
	Digest string `json:"digest"`
}

type fileMap map[string]File

func (m fileMap) MarshalJSON() ([]byte, error) {
	list := make([]File, 0, len(m))
	for _, f := range m {
		list = append(list, f)
	}
	return json.Marshal(list)
}

func (m *fileMap) UnmarshalJSON(data []byte) error {
	var list []File
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	out := make(fileMap, len(list))
	for _, f := range list {
		out[f.Name] = f
	}
	*m = out
	return nil
}

// Common holds the fields shared by both job variants: task-type identity
// and parameters, worker/sandbox bookkeeping, and the outcome fields every
// grading run produces regardless of kind.
type Common struct {
	TaskType           string       `json:"task_type"`
	TaskTypeParameters []any        `json:"task_type_parameters"`
	Shard              int          `json:"shard"`
	Sandboxes          []string     `json:"sandboxes"`
	Info               string       `json:"info"`
	Success            *bool        `json:"success"`
	Text               []string     `json:"text,omitempty"`
	Stats              *stats.Stats `json:"stats,omitempty"`
}

// AddSandboxPath appends a sandbox's outer directory to the job's
// bookkeeping trail, matching Job.py's `sandboxes` accumulation.
func (c *Common) AddSandboxPath(path string) {
	c.Sandboxes = append(c.Sandboxes, path)
}

// Compilation is the compilation-job variant: inputs language/files/
// managers, outputs compilation_success and the produced executables.
type Compilation struct {
	Common

	Language string  `json:"language"`
	Files    fileMap `json:"files"`
	Managers fileMap `json:"managers"`

	CompilationSuccess *bool   `json:"compilation_success"`
	Executables        fileMap `json:"executables"`
}

// MarshalJSON emits the CMS-style tagged envelope: {"type":"compilation", ...}.
func (j *Compilation) MarshalJSON() ([]byte, error) {
	type alias Compilation
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{Type: "compilation", alias: (*alias)(j)})
}

func (j *Compilation) UnmarshalJSON(data []byte) error {
	type alias Compilation
	aux := struct{ *alias }{alias: (*alias)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return nil
}

// SetFiles / SetManagers / SetExecutables let task-type code populate
// these maps without exposing the unexported fileMap type across package
// boundaries.
func (j *Compilation) SetFiles(m map[string]File)      { j.Files = fileMap(m) }
func (j *Compilation) SetManagers(m map[string]File)   { j.Managers = fileMap(m) }
func (j *Compilation) SetExecutables(m map[string]File) { j.Executables = fileMap(m) }
func (j *Compilation) GetFiles() map[string]File        { return map[string]File(j.Files) }
func (j *Compilation) GetManagers() map[string]File     { return map[string]File(j.Managers) }
func (j *Compilation) GetExecutables() map[string]File  { return map[string]File(j.Executables) }

// Evaluation is the evaluation-job variant, scoped to exactly one
// testcase per spec.md's per-testcase data model.
type Evaluation struct {
	Common

	Language            string  `json:"language"`
	Executables         fileMap `json:"executables"`
	InputDigest         string  `json:"input_digest"`
	CorrectOutputDigest string  `json:"correct_output_digest"`
	Files               fileMap `json:"files"`
	Managers            fileMap `json:"managers"`

	TimeLimitS           float64 `json:"time_limit_s"`
	MemoryLimitBytes     uint64  `json:"memory_limit_bytes"`
	MultithreadedSandbox bool    `json:"multithreaded_sandbox"`
	OnlyExecution        bool    `json:"only_execution"`
	GetOutput            bool    `json:"get_output"`
	Operation            string  `json:"operation"`

	Outcome    *string `json:"outcome"`
	UserOutput *string `json:"user_output"`
}

func (j *Evaluation) MarshalJSON() ([]byte, error) {
	type alias Evaluation
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{Type: "evaluation", alias: (*alias)(j)})
}

func (j *Evaluation) UnmarshalJSON(data []byte) error {
	type alias Evaluation
	aux := struct{ *alias }{alias: (*alias)(j)}
	return json.Unmarshal(data, &aux)
}

func (j *Evaluation) SetFiles(m map[string]File)       { j.Files = fileMap(m) }
func (j *Evaluation) SetManagers(m map[string]File)    { j.Managers = fileMap(m) }
func (j *Evaluation) SetExecutables(m map[string]File) { j.Executables = fileMap(m) }
func (j *Evaluation) GetFiles() map[string]File        { return map[string]File(j.Files) }
func (j *Evaluation) GetManagers() map[string]File     { return map[string]File(j.Managers) }
func (j *Evaluation) GetExecutables() map[string]File  { return map[string]File(j.Executables) }

// typeEnvelope peeks at the "type" discriminator without fully decoding.
type typeEnvelope struct {
	Type string `json:"type"`
}

// DecodeTagged decodes a tagged job envelope ({"type": "compilation"|
// "evaluation", ...}) into either a *Compilation or an *Evaluation,
// mirroring Job.import_from_dict_with_type's dispatch.
func DecodeTagged(data []byte) (any, error) {
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "compilation":
		var j Compilation
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		return &j, nil
	case "evaluation":
		var j Evaluation
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		return &j, nil
	default:
		return nil, fmt.Errorf("job: unrecognized type %q", env.Type)
	}
}
