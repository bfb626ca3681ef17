// Package eventlog implements the event_logger service: an append-only
// text log of every alert and log message, plus a short in-memory history.
package eventlog

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/message"
	"github.com/sweeney/home-safety-sensor/internal/ring"
)

// Defaults.
const (
	DefaultPath   = "home_safety.log"
	DefaultRecent = 50
)

// Entry is one logged event.
type Entry struct {
	Time time.Time `json:"time"`
	Kind string    `json:"kind"`
	Text string    `json:"text"`
}

// Logger appends events to a file, flushing after every line.
type Logger struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	now    func() time.Time
	recent *ring.Buffer[Entry]
}

// Open opens path for appending, creating it if needed. recent bounds the
// in-memory history; zero or less uses DefaultRecent.
func Open(path string, recent int) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if recent <= 0 {
		recent = DefaultRecent
	}
	return &Logger{
		f:      f,
		w:      bufio.NewWriter(f),
		now:    time.Now,
		recent: ring.New[Entry](recent),
	}, nil
}

// Append writes "EVENT: <text>" and flushes it.
func (l *Logger) Append(kind, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.w, "EVENT: %s\n", text); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}

	l.recent.Push(Entry{Time: l.now(), Kind: kind, Text: text})
	return nil
}

// Handle decodes an alert or log message and appends it. Errors are logged.
func (l *Logger) Handle(_ string, payload []byte) {
	t, err := message.DecodeText(payload)
	if err != nil {
		log.Printf("event_logger: %v", err)
		return
	}
	if err := l.Append(t.Type.String(), t.Text); err != nil {
		log.Printf("event_logger: %v", err)
		return
	}
	log.Printf("event_logger: logged: %s", t.Text)
}

// Recent returns the retained history, oldest first.
func (l *Logger) Recent() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.recent.Items()
}

// Close flushes and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
