package logger

import (
	"fmt"
	"io"
	"log"
	"time"

	glog "github.com/google/logger"
)

var base *glog.Logger

// Init configures the process-wide logger backend. The returned logger must
// be closed on shutdown. Tests may skip Init; messages then fall back to the
// standard library logger.
func Init(out io.Writer, verbose bool) *glog.Logger {
	base = glog.Init("tambola-admin", verbose, false, out)
	return base
}

// Debug logs a debug message with consistent format
// Format: timestamp=... actor_id=... action=... details=...
func Debug(actorID int64, action, details string) {
	line := format(actorID, action, details)
	if base != nil {
		base.Info(line)
		return
	}
	log.Print("[DEBUG] ", line)
}

// Error logs a failure with the same key=value format as Debug.
func Error(actorID int64, action, details string) {
	line := format(actorID, action, details)
	if base != nil {
		base.Error(line)
		return
	}
	log.Print("[ERROR] ", line)
}

func format(actorID int64, action, details string) string {
	return fmt.Sprintf("timestamp=%s actor_id=%d action=%s details=%s",
		time.Now().Format(time.RFC3339), actorID, action, details)
}
