package utils

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorGray   = "\033[90m"
)

var debugEnabled atomic.Bool

// SetDebug toggles LogDebug and LogDB output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

func format(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

func logLine(level, levelColor, component, message string) {
	log.Printf("%s[%s]%s %s[%s]%s %s",
		levelColor, level, ColorReset,
		ColorCyan, component, ColorReset,
		message)
}

func LogInfo(component, message string, args ...interface{}) {
	logLine("INFO", ColorBlue, component, format(message, args))
}

func LogSuccess(component, message string, args ...interface{}) {
	logLine("SUCCESS", ColorGreen, component, format(message, args))
}

func LogWarning(component, message string, args ...interface{}) {
	logLine("WARNING", ColorYellow, component, format(message, args))
}

func LogError(component, message string, err error) {
	if err != nil {
		logLine("ERROR", ColorRed, component,
			fmt.Sprintf("%s: %s%v%s", message, ColorRed, err, ColorReset))
		return
	}
	logLine("ERROR", ColorRed, component, message)
}

func LogDebug(component, message string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	logLine("DEBUG", ColorPurple, component, format(message, args))
}

func LogRequest(method, path, accountID string) {
	log.Printf("%s[REQUEST]%s %s%s%s %s | AccountID: %s%s%s",
		ColorCyan, ColorReset,
		ColorWhite, method, ColorReset,
		path,
		ColorYellow, accountID, ColorReset)
}

func LogResponse(path string, statusCode int, duration time.Duration) {
	color := ColorGreen
	if statusCode >= 400 && statusCode < 500 {
		color = ColorYellow
	} else if statusCode >= 500 {
		color = ColorRed
	}

	log.Printf("%s[RESPONSE]%s %s | Status: %s%d%s | Duration: %s%v%s",
		ColorGray, ColorReset,
		path,
		color, statusCode, ColorReset,
		ColorWhite, duration, ColorReset)
}

func LogDB(operation, query string) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("%s[DB]%s %s[%s]%s %s",
		ColorGray, ColorReset,
		ColorWhite, operation, ColorReset,
		query)
}
