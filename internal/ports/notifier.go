package ports

// Level is the severity of a transient notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces short-lived messages to the user, the terminal
// counterpart of a toast.
type Notifier interface {
	Toast(level Level, message string)
}

// NopNotifier discards every message.
type NopNotifier struct{}

// Toast implements Notifier.
func (NopNotifier) Toast(Level, string) {}
