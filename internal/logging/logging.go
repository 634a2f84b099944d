// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr.  Outside the dev environment the
// output is JSON so log shippers can index fields; an unknown level name
// falls back to info.
func New(env, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if env == "dev" || env == "test" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Discard returns a logger that drops everything.  Used as the default when
// a component is constructed without a logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
