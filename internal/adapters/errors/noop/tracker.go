package noop

import (
	"context"

	"huddle/pkg/errors"
)

// Tracker discards everything. Wired in when error tracking is
// disabled, and handy as the default in tests.
type Tracker struct{}

// New creates a no-op tracker.
func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}
