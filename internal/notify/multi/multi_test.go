package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/paperscout/internal/model"
)

type fake struct {
	sent   int
	closed int
	err    error
}

func (f *fake) Send(context.Context, model.Digest) error {
	f.sent++
	return f.err
}

func (f *fake) Close() error {
	f.closed++
	return f.err
}

func TestSendFansOut(t *testing.T) {
	a, b := &fake{}, &fake{}
	m := New(a, b)
	if err := m.Send(context.Background(), model.Digest{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if a.sent != 1 || b.sent != 1 {
		t.Fatalf("sent = %d, %d", a.sent, b.sent)
	}
}

func TestSendContinuesPastFailure(t *testing.T) {
	bad := &fake{err: errors.New("boom")}
	ok := &fake{}
	m := New(bad, ok)

	err := m.Send(context.Background(), model.Digest{})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if ok.sent != 1 {
		t.Fatal("second notifier skipped after first failed")
	}
}

func TestCloseAll(t *testing.T) {
	a, b := &fake{}, &fake{}
	m := New(a, b)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("closed = %d, %d", a.closed, b.closed)
	}
}
