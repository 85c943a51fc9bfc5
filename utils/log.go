package utils

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is an instance of logrus.Logger
// Logger is to be used for all logging
var Logger = logrus.New()

// initLogger initializes the logger with apropriate configuration options
func initLogger(config *Config) {
	Logger = GetNewFileLogger(config.LogFileName, config.LogMaxSize, config.LogLevel, true)
	Logger.Info("Logger started")
}

// GetNewFileLogger returns a logger writing to fileName, rotated at maxSize MB.
// The special fileName "stdout" logs to the console instead.
func GetNewFileLogger(fileName string, maxSize int, logLevel string, json bool) *logrus.Logger {
	if fileName == "" {
		fileName = "./stockpulse.log"
	}

	if maxSize == 0 {
		maxSize = 50
	}

	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		panic(err)
	}

	logger := &logrus.Logger{
		Hooks: make(logrus.LevelHooks),
		Level: level,
	}

	if fileName == "stdout" {
		logger.Out = os.Stdout
	} else {
		logger.Out = &lumberjack.Logger{
			Filename: fileName,
			MaxSize:  maxSize, // MB
		}
	}

	if json {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}

	return logger
}
