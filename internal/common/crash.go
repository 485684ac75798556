// -----------------------------------------------------------------------
// Crash reports - written when a browser run panics
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// WriteCrashFile writes a crash report for panicVal to
// {dir}/crash-{timestamp}.log and returns its path. If the file cannot be
// written the report goes to stderr and the error is returned.
func WriteCrashFile(dir string, panicVal interface{}, stackTrace string) (string, error) {
	now := time.Now()

	var report bytes.Buffer
	report.WriteString("=== INSIDER E2E CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())

	report.WriteString("=== PANIC VALUE ===\n")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	report.WriteString("=== STACK TRACE ===\n")
	report.WriteString(stackTrace)
	report.WriteString("\n")

	report.WriteString("=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "GOOS: %s\n", runtime.GOOS)
	fmt.Fprintf(&report, "GOARCH: %s\n", runtime.GOARCH)
	report.WriteString("=== END CRASH REPORT ===\n")

	crashPath := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "%s", report.String())
		return "", fmt.Errorf("failed to create crash directory: %w", err)
	}
	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		// Last resort: write to stderr
		fmt.Fprintf(os.Stderr, "%s", report.String())
		return "", fmt.Errorf("failed to write crash file: %w", err)
	}
	return crashPath, nil
}

// GetStackTrace returns the current goroutine's stack trace.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false) // false = current goroutine only
	return string(buf[:n])
}
