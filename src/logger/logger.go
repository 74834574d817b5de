package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the package-level logrus logger from LOG_LEVEL and
// LOG_FORMAT. Call once at process startup.
func Init() {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(level)
	}

	if os.Getenv("LOG_FORMAT") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// WithSession returns a logging entry scoped to a session id, the
// field carried through every session-lifecycle log line.
func WithSession(id interface{}) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"session_id": id})
}
