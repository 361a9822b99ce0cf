// Package notification shows transient feedback: a one-line toast on the
// terminal and, when enabled, a desktop notification.
package notification

import (
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/xvierd/kage-cli/internal/config"
	"github.com/xvierd/kage-cli/internal/ports"
)

const appName = "kage"

// Notifier handles terminal toasts and desktop notifications.
type Notifier struct {
	cfg    *config.NotificationConfig
	out    io.Writer
	mu     sync.Mutex
	notify func(title, message string) error
}

// New creates a new notifier writing toasts to out.
func New(cfg *config.NotificationConfig, out io.Writer) *Notifier {
	return &Notifier{
		cfg: cfg,
		out: out,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Toast implements ports.Notifier.
func (n *Notifier) Toast(level ports.Level, msg string) {
	if !n.IsEnabled() {
		return
	}

	n.mu.Lock()
	if n.out != nil {
		fmt.Fprintf(n.out, "%s %s\n", icon(level), msg)
	}
	n.mu.Unlock()

	if n.cfg.Desktop && level != ports.LevelInfo {
		_ = n.Notify(appName, msg)
	}
}

// SetOutput redirects terminal toasts. A nil writer silences them while
// desktop notifications keep working, which full-screen views rely on.
func (n *Notifier) SetOutput(out io.Writer) {
	n.mu.Lock()
	n.out = out
	n.mu.Unlock()
}

// Notify displays a desktop notification if enabled.
func (n *Notifier) Notify(title, message string) error {
	if !n.IsEnabled() || !n.cfg.Desktop {
		return nil
	}
	return n.notify(title, message)
}

// IsEnabled returns true if notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	return n.cfg != nil && n.cfg.Enabled
}

func icon(level ports.Level) string {
	switch level {
	case ports.LevelSuccess:
		return "✅"
	case ports.LevelError:
		return "❌"
	default:
		return "ℹ️"
	}
}

var _ ports.Notifier = (*Notifier)(nil)
