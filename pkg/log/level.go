package log

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devqik/solarboat/internal/errors"
)

// Level is solarboat's own log level type, kept distinct from logrus.Level
// so that callers never need to import logrus directly.
type Level uint32

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

var levelNames = map[Level]string{
	ErrorLevel: "error",
	WarnLevel:  "warn",
	InfoLevel:  "info",
	DebugLevel: "debug",
}

var levelToLogrus = map[Level]logrus.Level{
	ErrorLevel: logrus.ErrorLevel,
	WarnLevel:  logrus.WarnLevel,
	InfoLevel:  logrus.InfoLevel,
	DebugLevel: logrus.DebugLevel,
}

// ParseLevel parses a case-insensitive level name, e.g. "info" or "DEBUG".
func ParseLevel(str string) (Level, error) {
	for level, name := range levelNames {
		if strings.EqualFold(name, str) {
			return level, nil
		}
	}

	return InfoLevel, errors.Errorf("invalid log level %q, supported levels: error, warn, info, debug", str)
}

func (level Level) String() string {
	if name, ok := levelNames[level]; ok {
		return name
	}

	return "info"
}

func (level Level) toLogrus() logrus.Level {
	if lvl, ok := levelToLogrus[level]; ok {
		return lvl
	}

	return logrus.InfoLevel
}
