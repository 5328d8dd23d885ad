package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "StockPilot/internal/domain/repository"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","currency":"usd","longName":"Apple Inc.","shortName":"Apple"},
  "timestamp":[1717335000,1717335060],
  "indicators":{
    "quote":[{"open":[190.1,null],"high":[191.0,190.6],"low":[189.9,190.0],"close":[190.5,190.2],"volume":[1200,900]}],
    "adjclose":[{"adjclose":[190.5,190.2]}]
  }}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v8/finance/chart", srv.URL+"/v1/finance/search", WithRateLimit(0, 0))
}

func TestFetchBarsBuildsFrame(t *testing.T) {
	var gotPath, gotRange, gotInterval string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(chartBody))
	})

	f, err := c.FetchBars(context.Background(), "AAPL", "1d", "1m")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotRange)
	assert.Equal(t, "1m", gotInterval)

	require.Len(t, f.Index, 2)
	assert.Equal(t, time.Unix(1717335000, 0).UTC(), f.Index[0])
	assert.Equal(t, []string{"Close", "AAPL"}, f.Columns[3])
	assert.Nil(t, f.Rows[1][0], "missing open stays nil")
	require.NotNil(t, f.Rows[0][3])
	assert.Equal(t, 190.5, *f.Rows[0][3])
	assert.Equal(t, 900.0, *f.Rows[1][5])
	assert.Equal(t, "Apple Inc.", f.Meta.DisplayName)
	assert.Equal(t, "USD", f.Meta.Currency)
}

func TestFetchBarsClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{"unknown symbol", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, true},
		{"bad request", http.StatusBadRequest, `{}`, true},
		{"throttled", http.StatusTooManyRequests, `slow down`, false},
		{"server error", http.StatusBadGateway, ``, false},
		{"chart error in body", http.StatusOK, `{"chart":{"result":null,"error":{"code":"x","description":"delisted"}}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchBars(context.Background(), "ZZZZ", "1d", "1m")
			require.Error(t, err)
			assert.Equal(t, tt.permanent, isPermanent(err))
		})
	}
}

func TestFetchBarsEmptyIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"KO"},"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`))
	})
	_, err := c.FetchBars(context.Background(), "KO", "1d", "1m")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.False(t, isPermanent(err))
}

func TestMetadataSources(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/finance/search":
			_, _ = w.Write([]byte(`{"quotes":[{"symbol":"AAPL.MX","longname":"Wrong"},{"symbol":"AAPL","shortname":"Apple"}]}`))
		default:
			_, _ = w.Write([]byte(chartBody))
		}
	})

	md, err := NewChartMetaSource(c).Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", md.DisplayName)
	assert.Equal(t, "USD", md.Currency)

	md, err = NewSearchSource(c).Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple", md.DisplayName)
	assert.Empty(t, md.Currency)

	_, err = NewSearchSource(c).Lookup(context.Background(), "MSFT")
	assert.ErrorIs(t, err, drepo.ErrNotFound)
}

func isPermanent(err error) bool { return errors.Is(err, drepo.ErrPermanent) }
