// Package gradelog wires a process-wide logrus logger, grounded on
// hellobyte-dev-coderunr's api/cmd/server/main.go bootstrap.
package gradelog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	std = logrus.New()
)

// Init configures the package-default logger's level and formatter. Safe
// to call once at process startup; components that want a specific
// logger instead of the package default should accept one as a
// constructor argument.
func Init(level logrus.Level) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	std.SetLevel(level)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return std
}

// Default returns the package-wide logger.
func Default() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return std
}
