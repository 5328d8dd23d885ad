package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/repository/mocks"
	"StockPilot/pkg/cache"
)

func TestResolveKeepsCompleteKnownMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockMetadataSource(ctrl)
	secondary := mocks.NewMockMetadataSource(ctrl)

	e := New(primary, []drepo.MetadataSource{secondary})
	md := e.Resolve(context.Background(), "AAPL", models.Metadata{DisplayName: " Apple Inc. ", Currency: "usd"})
	assert.Equal(t, models.Metadata{DisplayName: "Apple Inc.", Currency: "USD"}, md)
}

func TestResolveFillsFieldsIndependently(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockMetadataSource(ctrl) // partial metadata skips the primary
	search := mocks.NewMockMetadataSource(ctrl)
	search.EXPECT().Lookup(gomock.Any(), "LEU").Return(models.Metadata{DisplayName: "Centrus Energy"}, nil)

	e := New(primary, []drepo.MetadataSource{search})
	md := e.Resolve(context.Background(), "LEU", models.Metadata{Currency: "USD"})
	assert.Equal(t, "Centrus Energy", md.DisplayName)
	assert.Equal(t, "USD", md.Currency)
}

func TestResolveFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockMetadataSource(ctrl)
	search := mocks.NewMockMetadataSource(ctrl)
	primary.EXPECT().Lookup(gomock.Any(), "ZZZZ").Return(models.Metadata{}, errors.New("timeout"))
	primary.EXPECT().Name().Return("chart_meta").AnyTimes()
	search.EXPECT().Lookup(gomock.Any(), "ZZZZ").Return(models.Metadata{}, errors.New("not found"))
	search.EXPECT().Name().Return("search").AnyTimes()

	e := New(primary, []drepo.MetadataSource{search})
	md := e.Resolve(context.Background(), "ZZZZ", models.Metadata{})
	assert.Equal(t, models.Metadata{DisplayName: "ZZZZ", Currency: models.UnknownCurrency}, md)
}

func TestResolveCachesResolvedFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockMetadataSource(ctrl)
	search := mocks.NewMockMetadataSource(ctrl)
	search.EXPECT().Lookup(gomock.Any(), "NVO").Return(models.Metadata{DisplayName: "Novo Nordisk A/S"}, nil).Times(1)

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	e := New(primary, []drepo.MetadataSource{search}, WithCache(mc, time.Hour))

	for i := 0; i < 3; i++ {
		md := e.Resolve(context.Background(), "NVO", models.Metadata{Currency: "USD"})
		require.Equal(t, "Novo Nordisk A/S", md.DisplayName)
	}
}

func TestFallback(t *testing.T) {
	assert.Equal(t, models.Metadata{DisplayName: "KO", Currency: "USD"}, Fallback("KO", models.Metadata{Currency: "USD"}))
}
