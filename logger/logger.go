package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Production gets JSON output at info level,
// everything else gets the human-readable development encoder.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must is New for main, where there is no useful fallback.
func Must(production bool) *zap.Logger {
	l, err := New(production)
	if err != nil {
		panic(err)
	}
	return l
}
