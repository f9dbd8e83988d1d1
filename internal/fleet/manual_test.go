package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatch/internal/models"
	pwerrors "sjsage522/pricewatch/pkg/errors"
)

func TestParseManualPrice(t *testing.T) {
	for _, raw := range []string{"0", "-5", "abc", "", "NaN", "Inf"} {
		_, err := ParseManualPrice(raw)
		assert.True(t, pwerrors.IsInvalidInput(err), raw)
	}

	p, err := ParseManualPrice(" 9.99 ")
	require.NoError(t, err)
	assert.Equal(t, 9.99, p)
}

func TestRecordManualPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("stores observation and manual log", func(t *testing.T) {
		h := newHarness()
		c := h.addCompetitor("alpha", "ED Medication", 10, true)

		res, err := h.service.RecordManualPrice(ctx, c.ID, 9.99, "")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, c.ID, res.CompetitorID)
		assert.Equal(t, "ED Medication", res.Product)
		assert.Equal(t, models.MethodManual, res.Method)
		assert.Nil(t, res.Alert)

		latest, err := h.store.LatestPriceObservation(ctx, c.ID, "ED Medication")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 9.99, latest.Price)

		logs, err := h.store.ListScrapeLogs(ctx, c.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.OutcomeManual, logs[0].Outcome)
		assert.Equal(t, 9.99, *logs[0].Price)
	})

	t.Run("product override", func(t *testing.T) {
		h := newHarness()
		c := h.addCompetitor("alpha", "ED Medication", 10, true)

		res, err := h.service.RecordManualPrice(ctx, c.ID, 12, "Skin Care")
		require.NoError(t, err)
		assert.Equal(t, "Skin Care", res.Product)

		latest, err := h.store.LatestPriceObservation(ctx, c.ID, "Skin Care")
		require.NoError(t, err)
		require.NotNil(t, latest)
	})

	t.Run("alerts like an extraction", func(t *testing.T) {
		h := newHarness()
		c := h.addCompetitor("alpha", "ED Medication", 10, true)
		h.addPrice(c, 7.20)

		res, err := h.service.RecordManualPrice(ctx, c.ID, 6.90, "")
		require.NoError(t, err)
		assert.Nil(t, res.Alert)

		res, err = h.service.RecordManualPrice(ctx, c.ID, 6.00, "")
		require.NoError(t, err)
		require.NotNil(t, res.Alert)
		assert.Equal(t, 6.90, res.Alert.OldPrice)
		assert.InDelta(t, -13.04, res.Alert.PercentChange, 0.01)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		h := newHarness()
		c := h.addCompetitor("alpha", "ED Medication", 10, true)

		for _, p := range []float64{0, -5} {
			_, err := h.service.RecordManualPrice(ctx, c.ID, p, "")
			assert.True(t, pwerrors.IsInvalidInput(err))
		}

		_, err := h.service.RecordManualPrice(ctx, 999, 9.99, "")
		assert.True(t, pwerrors.IsNotFound(err))

		logs, err := h.store.ListScrapeLogs(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}
