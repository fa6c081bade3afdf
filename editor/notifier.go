package editor

import (
	"fmt"
	"io"
	"time"
)

// Level classifies a notification
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Duration is how long a user interface should keep the message visible
func (l Level) Duration() time.Duration {
	if l == LevelError {
		return 5 * time.Second
	}
	return 3 * time.Second
}

// Notifier receives user-facing messages from a Session
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(level Level, message string)

// Notify calls f
func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// WriterNotifier prints one line per message
type WriterNotifier struct {
	W io.Writer
}

// Notify writes message to W, prefixing errors
func (n WriterNotifier) Notify(level Level, message string) {
	if level == LevelError {
		fmt.Fprintf(n.W, "error: %s\n", message)
		return
	}
	fmt.Fprintln(n.W, message)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Level, string) {}
