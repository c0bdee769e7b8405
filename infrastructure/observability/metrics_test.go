package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"spinningrats/config"
	"spinningrats/domain/entities"
	"spinningrats/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_DisabledIsSafe(t *testing.T) {
	t.Parallel()

	var nilProvider *MetricsProvider
	assert.NotPanics(t, func() {
		nilProvider.RecordLogin(true)
		nilProvider.RecordActiveViewers(3)
		nilProvider.RecordStoreOperation("file", "save", nil, time.Millisecond)
		require.NoError(t, nilProvider.Shutdown(context.Background()))
	})

	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "none"
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())
	assert.NotPanics(t, func() {
		mp.RecordScoreSubmission(ResultRejected)
		mp.RecordNotification(ResultDropped)
	})
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	t.Parallel()
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())
	assert.ErrorContains(t, err, "unknown exporter type")
}

func TestInstrumentedStore_PassesThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	state := entities.NewGameState("Tue Mar 05 2024")

	store := new(testhelpers.MockGameStateStore)
	store.On("Load", mock.Anything).Return(state, nil)
	store.On("Save", mock.Anything, state).Return(errors.New("disk full"))

	wrapped := InstrumentStore(store, "file", nil)

	loaded, err := wrapped.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, state, loaded)

	err = wrapped.Save(ctx, state)
	assert.EqualError(t, err, "disk full")
	store.AssertExpectations(t)
}
