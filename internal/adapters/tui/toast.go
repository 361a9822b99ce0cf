package tui

import (
	"sync"

	"github.com/xvierd/kage-cli/internal/ports"
)

// Toast is one transient message shown on the status line.
type Toast struct {
	Level   ports.Level
	Message string
}

// ToastBuffer collects service notifications so the views can render the
// latest one. Services call it from command goroutines.
type ToastBuffer struct {
	mu      sync.Mutex
	latest  *Toast
	forward ports.Notifier
}

// NewToastBuffer returns a buffer that also forwards every toast to next
// when next is non-nil.
func NewToastBuffer(next ports.Notifier) *ToastBuffer {
	return &ToastBuffer{forward: next}
}

// Toast implements ports.Notifier.
func (b *ToastBuffer) Toast(level ports.Level, message string) {
	b.mu.Lock()
	b.latest = &Toast{Level: level, Message: message}
	b.mu.Unlock()
	if b.forward != nil {
		b.forward.Toast(level, message)
	}
}

// Take returns the pending toast and clears it.
func (b *ToastBuffer) Take() (Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return Toast{}, false
	}
	t := *b.latest
	b.latest = nil
	return t, true
}

var _ ports.Notifier = (*ToastBuffer)(nil)
