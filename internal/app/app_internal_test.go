package app

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestAllChannelsClose(t *testing.T) {
	logger := slog.Default()

	t.Run("no channels closes immediately", func(t *testing.T) {
		out := allChannelsClose(t.Context(), logger)

		select {
		case <-out:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("expected out channel to close immediately")
		}
	})

	t.Run("waits for every channel", func(t *testing.T) {
		first := make(chan struct{})
		second := make(chan struct{})

		out := allChannelsClose(t.Context(), logger, first, second)

		close(first)

		select {
		case <-out:
			t.Fatal("out channel closed before all inputs closed")
		case <-time.After(50 * time.Millisecond):
		}

		close(second)

		select {
		case <-out:
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected out channel to close after all inputs closed")
		}
	})

	t.Run("context cancel unblocks pending channels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		pending := make(chan struct{})
		out := allChannelsClose(ctx, logger, pending)

		cancel()

		select {
		case <-out:
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected out channel to close after context cancel")
		}
	})
}
