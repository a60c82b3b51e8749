package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestNatsServer_PublishSubscribe(t *testing.T) {
	s, err := NewNatsServer(WithPort(-1), WithStartTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	if err := s.Publish("early", []byte("x")); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before start, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	}()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	got := make(chan []byte, 1)
	unsub, err := s.Subscribe(Subject("abc"), func(data []byte) { got <- data })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	if err := s.Publish(Subject("abc"), []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case data := <-got:
		testutil.AssertEqual(t, "payload", string(data), `{"type":"ping"}`)
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}
