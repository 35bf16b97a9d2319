package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/config"
	"github.com/coderunr/gradecore/internal/filecacher"
	"github.com/coderunr/gradecore/internal/gradelog"
	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/tasktype"
)

// newContext loads configuration, wires the logger and a disk-backed
// file cacher rooted under the configured scratch directory, and
// returns a tasktype.Context ready to pass to Compile/Evaluate.
func newContext(verbose bool) (*tasktype.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level := cfg.GetLogLevel()
	if verbose {
		level = logrus.DebugLevel
	}
	logger := gradelog.Init(level)

	cacher, err := filecacher.NewDirCacher(filepath.Join(cfg.ScratchRoot, "fileobjects"))
	if err != nil {
		return nil, fmt.Errorf("creating file cacher: %w", err)
	}

	return &tasktype.Context{
		Config: cfg,
		Cacher: cacher,
		Alloc:  sandbox.NewIDAllocator(cfg.WorkerShard),
		Log:    logger,
	}, nil
}
