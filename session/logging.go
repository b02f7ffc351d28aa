package session

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the standard logger, mirroring the teacher's
// tdns.SetupLogging: short file/time prefixes, optionally routed through
// a rotating lumberjack sink when logfile is non-empty. Unlike the
// teacher, an empty logfile is not fatal here — ixfrgen is also run
// interactively from the CLI, where logging to stderr is the common case.
func SetupLogging(logfile string) {
	log.SetFlags(log.Lshortfile | log.Ltime)

	if logfile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
		})
	}
}
