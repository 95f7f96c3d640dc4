package shutdown_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msdca/minecraft-k8s-manager/internal/infra/shutdown"
)

// orderedShutdowner records the order in which components shut down via a
// shared recorder.
type orderedShutdowner struct {
	name string
	err  error

	mu    *sync.Mutex
	order *[]string
}

func (s *orderedShutdowner) Name() string {
	return s.name
}

func (s *orderedShutdowner) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	*s.order = append(*s.order, s.name)

	return s.err
}

func TestGracefulShutdown(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	newRecorder := func() (*sync.Mutex, *[]string) {
		return &sync.Mutex{}, &[]string{}
	}

	t.Run("empty list returns nil", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, shutdown.GracefulShutdown(t.Context(), logger, nil))
	})

	t.Run("components shut down in reverse order", func(t *testing.T) {
		t.Parallel()

		mu, order := newRecorder()

		err := shutdown.GracefulShutdown(t.Context(), logger, []shutdown.Shutdowner{
			&orderedShutdowner{name: "first", mu: mu, order: order},
			&orderedShutdowner{name: "second", mu: mu, order: order},
			&orderedShutdowner{name: "third", mu: mu, order: order},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"third", "second", "first"}, *order)
	})

	t.Run("one failure does not stop the rest", func(t *testing.T) {
		t.Parallel()

		mu, order := newRecorder()

		err := shutdown.GracefulShutdown(t.Context(), logger, []shutdown.Shutdowner{
			&orderedShutdowner{name: "first", mu: mu, order: order},
			&orderedShutdowner{name: "second", err: context.DeadlineExceeded, mu: mu, order: order},
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, []string{"second", "first"}, *order)
	})

	t.Run("errors are joined", func(t *testing.T) {
		t.Parallel()

		mu, order := newRecorder()

		err := shutdown.GracefulShutdown(t.Context(), logger, []shutdown.Shutdowner{
			&orderedShutdowner{name: "first", err: context.Canceled, mu: mu, order: order},
			&orderedShutdowner{name: "second", err: context.DeadlineExceeded, mu: mu, order: order},
		})
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("survives a cancelled origin context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		mu, order := newRecorder()

		err := shutdown.GracefulShutdown(ctx, logger, []shutdown.Shutdowner{
			&orderedShutdowner{name: "only", mu: mu, order: order},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"only"}, *order)
	})
}

func TestHandler_HandleSignals(t *testing.T) {
	t.Parallel()

	t.Run("cancels on signal", func(t *testing.T) {
		t.Parallel()

		quit := make(chan os.Signal, 1)
		quit <- syscall.SIGTERM

		handler := shutdown.New(slog.Default(), quit)

		ctx, cancel := context.WithCancel(t.Context())

		handler.HandleSignals(ctx, cancel)

		require.Error(t, ctx.Err())
	})

	t.Run("returns on context done", func(t *testing.T) {
		t.Parallel()

		quit := make(chan os.Signal)
		handler := shutdown.New(slog.Default(), quit)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		done := make(chan struct{})

		go func() {
			handler.HandleSignals(ctx, cancel)
			close(done)
		}()

		<-done
	})
}
