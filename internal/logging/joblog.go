package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// JobLog is the append-only plain-text log kept per task.
// Lines are timestamped and read back verbatim for display; no structure
// beyond one message per line is assumed.
type JobLog struct {
	mu   sync.Mutex
	path string
}

// JobLogName returns the log file name for a task id.
func JobLogName(taskID string) string {
	return fmt.Sprintf("make_%s.log", taskID)
}

// NewJobLog opens (creating if needed) the job log for a task id.
func NewJobLog(taskID string) *JobLog {
	return &JobLog{path: filepath.Join(logsDir, JobLogName(taskID))}
}

// Append writes one timestamped line. Write failures are swallowed: losing a
// progress line must never fail the task it describes.
func (j *JobLog) Append(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[joblog] Warning: could not open %s: %v\n", j.path, err)
		return
	}
	defer f.Close()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), msg)
}

// Read returns the log contents verbatim, or "" if the log does not exist.
func (j *JobLog) Read() string {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Path returns the log file path.
func (j *JobLog) Path() string {
	return j.path
}

// ReadJobLog returns the job log contents for a task id, verbatim.
func ReadJobLog(taskID string) string {
	return NewJobLog(taskID).Read()
}

// TailLines returns the last n lines of the job log for display.
func (j *JobLog) TailLines(n int) []string {
	content := strings.TrimRight(j.Read(), "\n")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
