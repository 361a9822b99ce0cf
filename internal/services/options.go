package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// Options configures the timeline and todo services.
type Options struct {
	TTL          time.Duration
	EventTypeTTL time.Duration
	// ServerFilter asks the API to filter todos by tab instead of
	// filtering the cached full list locally.
	ServerFilter bool
	Now          func() time.Time
	Logger       *zap.Logger
	Notifier     ports.Notifier
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.EventTypeTTL <= 0 {
		o.EventTypeTTL = DefaultEventTypeTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Notifier == nil {
		o.Notifier = ports.NopNotifier{}
	}
	return o
}

func (o Options) today() string {
	return domain.FormatDate(o.Now())
}
