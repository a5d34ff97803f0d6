package stream

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCoordinator_ProduceConsumeRoundTrip(t *testing.T) {
	coord := NewCoordinator(4)
	upstream := strings.NewReader("hello world")

	var got bytes.Buffer
	errCh := make(chan error, 1)
	go func() {
		errCh <- coord.Produce(context.Background(), upstream, 4)
	}()

	err := coord.Consume(context.Background(), func(b []byte) error {
		got.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if got.String() != "hello world" {
		t.Errorf("got %q, want %q", got.String(), "hello world")
	}
}

func TestCoordinator_ConsumerStopsOnEmitError(t *testing.T) {
	coord := NewCoordinator(4)
	upstream := strings.NewReader("abcdefgh")

	go coord.Produce(context.Background(), upstream, 2)

	called := 0
	err := coord.Consume(context.Background(), func(b []byte) error {
		called++
		return errStop
	})
	if err != errStop {
		t.Fatalf("expected the emit error to propagate, got %v", err)
	}
	if called != 1 {
		t.Errorf("expected exactly one emit call before stopping, got %d", called)
	}
}

var errStop = errStopType{}

type errStopType struct{}

func (errStopType) Error() string { return "stop" }

func TestCacheWriter_AbandonsPastThreshold(t *testing.T) {
	w := NewCacheWriter()
	w.Append(make([]byte, CacheAbandonThreshold+1))
	if !w.Abandoned() {
		t.Error("expected the writer to abandon buffering past the threshold")
	}
	if w.Body() != nil {
		t.Error("expected an abandoned writer's buffer to be released")
	}
}

func TestCacheWriter_KeepsSmallBody(t *testing.T) {
	w := NewCacheWriter()
	w.Append([]byte("small"))
	if w.Abandoned() {
		t.Error("did not expect abandonment for a small body")
	}
	if string(w.Body()) != "small" {
		t.Errorf("Body() = %q, want small", w.Body())
	}
}
