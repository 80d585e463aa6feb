package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// LoggedEvent represents an event that has been logged to disk.
type LoggedEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLogger appends published events to a JSON lines file so runs can be
// inspected or replayed later.
type EventLogger struct {
	logPath string
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewEventLogger opens logPath for appending, creating it and its directory
// when needed.
func NewEventLogger(logPath string) (*EventLogger, error) {
	if logPath == "" {
		return nil, errors.ValidationError("event log path is required")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to create event log directory", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to open event log", err)
	}

	return &EventLogger{
		logPath: logPath,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Path returns the log file path.
func (l *EventLogger) Path() string { return l.logPath }

// Log writes an event to the log file.
func (l *EventLogger) Log(topic string, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeUnavailable, "event logger is closed")
	}

	loggedEvent := LoggedEvent{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
	}

	if err := l.encoder.Encode(loggedEvent); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}

	return nil
}

// Close closes the log file.
func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}
	return nil
}

// EventFilter selects logged events. Zero fields match everything.
type EventFilter struct {
	Since time.Time
	RunID string
	Limit int
}

func (f EventFilter) match(e LoggedEvent) bool {
	if !f.Since.IsZero() && !e.Timestamp.After(f.Since) {
		return false
	}
	if f.RunID != "" && e.Event.CorrelationID != f.RunID {
		return false
	}
	return true
}

// ReadEvents reads events from the log at logPath in the order they were
// written. A missing log yields no events. Malformed lines are skipped.
func ReadEvents(logPath string, filter EventFilter) ([]LoggedEvent, error) {
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, "failed to open event log", err)
	}
	defer file.Close()

	events := []LoggedEvent{}
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		var loggedEvent LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &loggedEvent); err != nil {
			continue
		}
		if !filter.match(loggedEvent) {
			continue
		}
		events = append(events, loggedEvent)
		if filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to scan event log", err)
	}

	return events, nil
}

// Replay publishes the logged events selected by filter to b, in order.
// It returns the number of events published.
func Replay(ctx context.Context, logPath string, b Bus, filter EventFilter) (int, error) {
	events, err := ReadEvents(logPath, filter)
	if err != nil {
		return 0, err
	}

	for i, loggedEvent := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := b.Publish(ctx, loggedEvent.Topic, loggedEvent.Event); err != nil {
			return i, fmt.Errorf("failed to replay event %s: %w", loggedEvent.Event.ID, err)
		}
	}

	return len(events), nil
}
