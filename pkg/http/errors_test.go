package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMapResolve(t *testing.T) {
	errGone := errors.New("gone")
	errBusy := errors.New("busy")
	m := ErrorMap{
		{Target: errGone, Build: Passthrough(BadRequestError)},
		{Target: errBusy, Build: Always(ServiceUnavailableError, "try later")},
	}

	appErr, ok := m.Resolve(fmt.Errorf("lookup: %w", errGone))
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "lookup: gone", appErr.Message)
	assert.ErrorIs(t, appErr, errGone)

	appErr, ok = m.Resolve(errBusy)
	require.True(t, ok)
	assert.Equal(t, "ERR_UNAVAILABLE", appErr.Code)
	assert.Equal(t, "try later", appErr.Message)

	direct := NotFoundError("nothing here")
	appErr, ok = m.Resolve(fmt.Errorf("wrapped: %w", direct))
	require.True(t, ok)
	assert.Same(t, direct, appErr)

	_, ok = m.Resolve(errors.New("other"))
	assert.False(t, ok)
}

func TestAppErrorMessage(t *testing.T) {
	e := InternalError("boom").WithError(errors.New("disk full"))
	assert.Equal(t, "boom: disk full", e.Error())
	assert.Equal(t, "symbol", BadRequestError("x").OnField("symbol").Field)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stockpilot-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewClient(WithHeader("User-Agent", "stockpilot-test"))
	var out map[string]interface{}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		QueryParams: map[string][]string{"range": {"1d"}},
	}, &out)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Temporary())
	assert.Equal(t, "slow down", se.Body)
	assert.Equal(t, 7*time.Second, RetryAfterOf(fmt.Errorf("fetch: %w", err)))
}
