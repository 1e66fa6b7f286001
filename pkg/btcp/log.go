package btcp

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared *logrus.Logger every bTCP component logs
// through, configured the way sun977-NeoScan's internal/pkg/logger package
// configures its shared instance: an explicit level and a text formatter
// with a fixed timestamp layout, rather than logrus's defaults.
func NewLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	logger.SetOutput(os.Stderr)
	return logger
}
