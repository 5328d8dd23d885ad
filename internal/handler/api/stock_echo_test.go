package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
	domrepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/service/metrics"
	"StockPilot/internal/service/ratelimit"
	"StockPilot/internal/usecase"
	xhttp "StockPilot/pkg/http"
	"StockPilot/pkg/queue"
)

type fakeQueries struct {
	snapshots map[string]*models.Snapshot
	err       error
	alertIDs  []string
}

func (f *fakeQueries) lookup(id string) (*models.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.snapshots[strings.ToUpper(id)]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return s, nil
}

func (f *fakeQueries) Instruments(context.Context) ([]string, error) {
	return []string{"AAPL", "MSFT"}, f.err
}

func (f *fakeQueries) LatestBars(_ context.Context, id string, n int) ([]models.BarPoint, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return make([]models.BarPoint, n), nil
}

func (f *fakeQueries) Snapshot(_ context.Context, id string) (*models.Snapshot, error) {
	return f.lookup(id)
}

func (f *fakeQueries) VolumeSeries(_ context.Context, id string, n int) (*models.VolumeSeries, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return &models.VolumeSeries{InstrumentID: id, Points: make([]models.VolumePoint, n)}, nil
}

func (f *fakeQueries) Trend(_ context.Context, id string) (*models.Trend, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return &models.Trend{InstrumentID: id, State: models.TrendNeutral}, nil
}

func (f *fakeQueries) Signals(_ context.Context, id string, _ int) (*models.SignalResult, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	return &models.SignalResult{Status: models.SignalInsufficientData, Recommendation: models.Hold}, nil
}

func (f *fakeQueries) Overview(_ context.Context, id string, _ int) (*models.Overview, error) {
	s, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	return &models.Overview{InstrumentID: id, Snapshot: s}, nil
}

func (f *fakeQueries) VolumeAlerts(_ context.Context, ids []string) ([]models.VolumeAlert, error) {
	f.alertIDs = ids
	return []models.VolumeAlert{{InstrumentID: "TSLA", Ratio: 6.9}}, nil
}

type fakeJobs struct {
	mu      sync.Mutex
	msgType string
	payload interface{}
	err     error
}

func (f *fakeJobs) Enqueue(_ context.Context, msgType string, payload interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgType, f.payload = msgType, payload
	return "job-42", nil
}

type apiBody struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var testDefaults = usecase.RunDefaults{Instruments: []string{"KO"}, Period: "1d", Interval: "1m"}

func newTestEcho(t *testing.T, q Queries, jobs *fakeJobs, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	e := echo.New()
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	var pub queue.Publisher
	if jobs != nil {
		pub = jobs
	}
	h := NewStockEchoHandler(nil, q, pub, testDefaults, limiter, m, StreamConfig{Every: 20 * time.Millisecond, MinEvery: time.Millisecond})
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, apiBody) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out apiBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func snapshots() *fakeQueries {
	return &fakeQueries{snapshots: map[string]*models.Snapshot{
		"AAPL": {InstrumentID: "AAPL", Price: 201.25},
	}}
}

func TestSnapshotOK(t *testing.T) {
	e := newTestEcho(t, snapshots(), nil, nil)
	rec, body := do(t, e, http.MethodGet, "/api/snapshot?symbol=AAPL", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)
	var s models.Snapshot
	require.NoError(t, json.Unmarshal(body.Data, &s))
	assert.Equal(t, 201.25, s.Price)
}

func TestReadStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		q      *fakeQueries
		target string
		want   int
	}{
		{"missing symbol", snapshots(), "/api/snapshot", http.StatusBadRequest},
		{"n defaults", snapshots(), "/api/bars?symbol=AAPL&n=0", http.StatusOK},
		{"n too large", snapshots(), "/api/bars?symbol=AAPL&n=9000", http.StatusBadRequest},
		{"unknown symbol", snapshots(), "/api/trend?symbol=ZZZ", http.StatusNotFound},
		{"invalid symbol", &fakeQueries{err: usecase.ErrInvalidInstrumentID}, "/api/signals?symbol=a/b", http.StatusBadRequest},
		{"backend failure", &fakeQueries{err: errors.New("clickhouse down")}, "/api/volume?symbol=AAPL", http.StatusInternalServerError},
		{"overview", snapshots(), "/api/overview?symbol=aapl", http.StatusOK},
		{"instruments", snapshots(), "/api/instruments", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t, tt.q, nil, nil)
			rec, body := do(t, e, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want, body.Status)
		})
	}
}

func TestValidationNamesQueryField(t *testing.T) {
	e := newTestEcho(t, snapshots(), nil, nil)
	_, body := do(t, e, http.MethodGet, "/api/snapshot", "")

	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(body.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "symbol", errs[0].Field)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
}

func TestNotFoundCarriesMessage(t *testing.T) {
	e := newTestEcho(t, snapshots(), nil, nil)
	_, body := do(t, e, http.MethodGet, "/api/snapshot?symbol=ZZZ", "")

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(body.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_NOT_FOUND", errs[0].Code)
	assert.Contains(t, errs[0].Message, "ZZZ")
}

func TestVolumeAlertsSplitsSymbols(t *testing.T) {
	q := snapshots()
	e := newTestEcho(t, q, nil, nil)
	rec, _ := do(t, e, http.MethodGet, "/api/alerts/volume?symbols=AAPL,MSFT&symbols=KO", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "MSFT", "KO"}, q.alertIDs)
}

func TestTriggerIngestion(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		jobs := &fakeJobs{}
		e := newTestEcho(t, snapshots(), jobs, nil)
		rec, body := do(t, e, http.MethodPost, "/api/ingestions", `{"symbols":["aapl","AAPL"," msft"],"period":"5d","interval":"5m"}`)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, string(body.Data), `"job_id":"job-42"`)
		assert.Equal(t, usecase.JobTypeIngest, jobs.msgType)
		req, ok := jobs.payload.(models.IngestionRequest)
		require.True(t, ok)
		assert.Equal(t, []string{"AAPL", "MSFT"}, req.Instruments)
		assert.Equal(t, "5d", req.Period)
		assert.NotEmpty(t, req.ID)
	})

	t.Run("defaults", func(t *testing.T) {
		jobs := &fakeJobs{}
		e := newTestEcho(t, snapshots(), jobs, nil)
		rec, _ := do(t, e, http.MethodPost, "/api/ingestions", `{}`)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		req := jobs.payload.(models.IngestionRequest)
		assert.Equal(t, "1d", req.Period)
		assert.Equal(t, "1m", req.Interval)
		assert.Empty(t, req.Instruments)
	})

	t.Run("unsupported granularity", func(t *testing.T) {
		e := newTestEcho(t, snapshots(), &fakeJobs{}, nil)
		rec, _ := do(t, e, http.MethodPost, "/api/ingestions", `{"period":"1y","interval":"1m"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no queue", func(t *testing.T) {
		e := newTestEcho(t, snapshots(), nil, nil)
		rec, _ := do(t, e, http.MethodPost, "/api/ingestions", `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	e := newTestEcho(t, snapshots(), nil, ratelimit.New(0, 1))

	rec, _ := do(t, e, http.MethodGet, "/api/instruments", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := do(t, e, http.MethodGet, "/api/instruments", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	e := echo.New()
	NewHealthHandler(nil, time.Second, map[string]HealthCheck{"clickhouse": ok}).RegisterRoutes(e)
	rec, _ := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e = echo.New()
	NewHealthHandler(nil, time.Second, map[string]HealthCheck{"clickhouse": ok, "redis": down}).RegisterRoutes(e)
	rec, body := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(body.Data), `"redis":"dial tcp: refused"`)
}

func TestStreamSnapshots(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(t, snapshots(), nil, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/snapshots?symbol=AAPL,ZZZ"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var first, second streamFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, 201.25, first.Snapshot.Price)
	assert.Equal(t, "empty", second.Type)
	assert.Equal(t, "ZZZ", second.Symbol)

	// frames keep coming on the interval
	var next streamFrame
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "AAPL", next.Symbol)
}

func TestStreamRequiresSymbol(t *testing.T) {
	e := newTestEcho(t, snapshots(), nil, nil)
	rec, _ := do(t, e, http.MethodGet, "/api/ws/snapshots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
