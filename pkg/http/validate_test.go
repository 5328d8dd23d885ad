package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowRequest struct {
	Symbol string `query:"symbol" validate:"required,max=5"`
	N      int    `query:"n" default:"60" validate:"gte=1,lte=100"`
}

func bindQuery(t *testing.T, rawQuery string, req interface{}) interface{} {
	t.Helper()
	e := echo.New()
	r := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	c := e.NewContext(r, httptest.NewRecorder())
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	req := &windowRequest{}
	require.Nil(t, bindQuery(t, "symbol=AAPL", req))
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, 60, req.N)
}

func TestReadAndValidateReportsWireNames(t *testing.T) {
	out := bindQuery(t, "symbol=TOOLONG&n=500", &windowRequest{})
	errs, ok := out.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	assert.Equal(t, "ERR_MAX", errs[0].Code)
	assert.Equal(t, "symbol", errs[0].Field)
	assert.Equal(t, "symbol must be at most 5 characters", errs[0].Message)

	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "n", errs[1].Field)
	assert.Equal(t, "n must be less than or equal to 100", errs[1].Message)
	assert.Equal(t, "100", errs[1].Params["max"])
}

func TestReadAndValidateRequired(t *testing.T) {
	errs, ok := bindQuery(t, "", &windowRequest{}).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "symbol is required", errs[0].Message)
	assert.Nil(t, errs[0].Params)
}

func TestReadAndValidateBindFailure(t *testing.T) {
	errs, ok := bindQuery(t, "symbol=A&n=abc", &windowRequest{}).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}
