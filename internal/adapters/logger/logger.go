// Package logger provides the ports.Logger implementations: structured
// JSON logging on top of zap and a plain text logger on the standard log
// package.
package logger

import (
	"fmt"
	"strings"

	"github.com/henrywu-dev/tophy-bot/internal/ports"
)

// New builds the logger implementation selected by format: "json" (the
// default) returns the zap logger, "text" the plain standard-library one.
func New(format, level string) (ports.Logger, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewZapLogger(level)
	case "text":
		return NewStdLogger(ParseLevel(level)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json or text)", format)
	}
}
