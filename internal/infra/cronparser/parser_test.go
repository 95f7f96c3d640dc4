package cronparser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msdca/minecraft-k8s-manager/internal/infra/cronparser"
)

func TestParser_NextAfter(t *testing.T) {
	t.Parallel()

	parser := cronparser.New()
	after := time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)

	t.Run("every thirty minutes", func(t *testing.T) {
		t.Parallel()

		next, err := parser.NextAfter("*/30 * * * *", after)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), next)
	})

	t.Run("daily at midnight", func(t *testing.T) {
		t.Parallel()

		next, err := parser.NextAfter("0 0 * * *", after)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("explicit timezone is honored", func(t *testing.T) {
		t.Parallel()

		next, err := parser.NextAfter("CRON_TZ=UTC 0 6 * * *", after)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), next)
	})

	t.Run("invalid spec errors", func(t *testing.T) {
		t.Parallel()

		_, err := parser.NextAfter("not a cron spec", after)
		require.Error(t, err)
	})

	t.Run("too few fields errors", func(t *testing.T) {
		t.Parallel()

		_, err := parser.NextAfter("* * *", after)
		require.Error(t, err)
	})
}
