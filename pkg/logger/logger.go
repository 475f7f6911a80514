package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/fsutil"
)

var (
	log      *logrus.Logger
	logMutex sync.Mutex
	logFile  *os.File
)

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	logMutex.Lock()
	defer logMutex.Unlock()

	if log == nil {
		log = logrus.New()
		log.SetOutput(os.Stdout)
		log.SetLevel(logrus.InfoLevel)

		// JSON format for better parsing
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return log
}

// EnableFileOutput copies every log entry to the given file in addition to stdout
func EnableFileOutput(path string) error {
	f, err := fsutil.AppendFile(path)
	if err != nil {
		return err
	}

	l := GetLogger()

	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	l.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// SetDebug switches the global logger between Debug and Info level
func SetDebug(enabled bool) {
	if enabled {
		GetLogger().SetLevel(logrus.DebugLevel)
	} else {
		GetLogger().SetLevel(logrus.InfoLevel)
	}
}

// WrapError logs an error with context fields and returns it unchanged
func WrapError(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	fields := logrus.Fields{}
	for k, v := range context {
		fields[k] = v
	}

	GetLogger().WithFields(fields).WithError(err).Error("Operation failed")

	return err
}

// ResetLogger resets the global logger instance (for testing only)
func ResetLogger() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	log = nil
}
