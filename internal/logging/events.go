package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType names one pipeline lifecycle event.
type EventType string

const (
	// Task lifecycle
	EventTaskCreated   EventType = "task_created"
	EventTaskStarted   EventType = "task_started"
	EventTaskGenerated EventType = "task_generated"
	EventTaskFailed    EventType = "task_failed"

	// Review decisions
	EventTaskApproved EventType = "task_approved"
	EventTaskRejected EventType = "task_rejected"
	EventTaskRevised  EventType = "task_revised"

	// Ingestion
	EventPullRecorded EventType = "pull_recorded"
	EventPullCloned   EventType = "pull_cloned"
	EventPullFailed   EventType = "pull_failed"
)

// Event is one structured entry in the pipeline event log. The log is
// JSON lines, append-only, and read back for task history display.
type Event struct {
	Timestamp int64     `json:"ts"` // Unix milliseconds
	Type      EventType `json:"event"`
	TaskID    string    `json:"task,omitempty"`
	Repo      string    `json:"repo,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Error     string    `json:"error,omitempty"`
}

var (
	eventsMu   sync.Mutex
	eventsFile *os.File
)

const eventsFileName = "events.jsonl"

// RecordEvent appends one event to the pipeline event log. Like job log
// writes, failures are swallowed; history must never fail the pipeline.
func RecordEvent(ev Event) {
	eventsMu.Lock()
	defer eventsMu.Unlock()

	if logsDir == "" {
		return
	}
	if eventsFile == nil {
		f, err := os.OpenFile(filepath.Join(logsDir, eventsFileName),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		eventsFile = f
	}

	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	eventsFile.Write(append(data, '\n'))
}

// TaskEvents returns the recorded events for one task, oldest first.
// Lines that fail to parse are skipped.
func TaskEvents(taskID string) []Event {
	eventsMu.Lock()
	path := filepath.Join(logsDir, eventsFileName)
	eventsMu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if ev.TaskID == taskID {
			events = append(events, ev)
		}
	}
	return events
}

// CloseEvents flushes and closes the event log. Called at shutdown.
func CloseEvents() {
	eventsMu.Lock()
	defer eventsMu.Unlock()
	if eventsFile != nil {
		eventsFile.Close()
		eventsFile = nil
	}
}
