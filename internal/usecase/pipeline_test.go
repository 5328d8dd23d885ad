package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"StockPilot/internal/domain/models"
	"StockPilot/internal/domain/repository/mocks"
	"StockPilot/pkg/metrics"
)

var errNoBucket = errors.New("storage.bucket: storage destination is not configured")

func TestRunIngestionFailsFastWithoutDestination(t *testing.T) {
	ctrl := gomock.NewController(t)
	md := mocks.NewMockMarketData(ctrl) // no calls expected

	p := NewPipeline(newTestIngestor(md, time.Now()), NewBatchWriter(newMemStore(), nil, metrics.Nop{}, 1, nil),
		func() error { return errNoBucket }, nil)
	_, err := p.RunIngestion(context.Background(), []string{"AAPL"}, "1d", "1m")
	assert.ErrorIs(t, err, errNoBucket)
}

func TestRunIngestionWritesBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	md := mocks.NewMockMarketData(ctrl)
	md.EXPECT().FetchBars(gomock.Any(), "NFLX", "1d", "1m").Return(rawFrame("NFLX", 5, models.Metadata{}), nil)

	store := newMemStore()
	now := time.Date(2025, 6, 2, 13, 40, 0, 0, time.UTC)
	p := NewPipeline(newTestIngestor(md, now), NewBatchWriter(store, nil, metrics.Nop{}, 1, nil),
		func() error { return nil }, nil)

	res, err := p.RunIngestion(context.Background(), []string{"NFLX"}, "1d", "1m")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, []string{"mem://bucket/raw/2025-06-02/NFLX_2025-06-02T13-40-00Z.parquet"}, res.URIs)
	assert.Equal(t, "run-1", res.RunID)
}
