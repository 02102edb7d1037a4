package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/notify"
)

// Multi fans a digest out to several notifiers. Each Send delivers to
// every wrapped notifier sequentially; one failing does not stop the
// rest.
type Multi struct {
	notifiers []notify.Notifier
}

// New creates a Multi that fans out to the given notifiers.
func New(notifiers ...notify.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Send delivers the digest to every wrapped notifier, collecting
// errors.
func (m *Multi) Send(ctx context.Context, d model.Digest) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped notifier, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
