package logging

import (
	"go.uber.org/zap"
)

// New returns a logger tuned to the environment: JSON at info level in prod,
// console at debug level everywhere else.
func New(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
