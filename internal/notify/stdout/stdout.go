package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/paperscout/internal/model"
)

// Notifier writes the digest as JSON, by default to stdout. Useful for
// piping runs into other tooling and for dry runs.
type Notifier struct {
	enc *json.Encoder
}

// New creates a stdout notifier with optional pretty-printed JSON.
func New(pretty bool) *Notifier {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter creates a notifier writing to w.
func NewWriter(w io.Writer, pretty bool) *Notifier {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Notifier{enc: enc}
}

func (n *Notifier) Send(_ context.Context, d model.Digest) error {
	if err := n.enc.Encode(d); err != nil {
		return fmt.Errorf("stdout notifier: %w", err)
	}
	return nil
}

func (n *Notifier) Close() error { return nil }
