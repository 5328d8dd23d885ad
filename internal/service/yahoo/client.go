package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	xhttp "StockPilot/pkg/http"
	applogger "StockPilot/pkg/logger"
)

// ErrEmptyResponse is a transient condition: the provider answered without rows.
var ErrEmptyResponse = errors.New("empty response")

// Client reads the Yahoo Finance chart and search endpoints.
type Client struct {
	chartURL  string
	searchURL string
	http      *xhttp.Client
	limiter   *rate.Limiter
	l         *applogger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithRateLimit caps outgoing requests per second across all symbols.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.l = l
		}
	}
}

func New(chartURL, searchURL string, opts ...Option) *Client {
	c := &Client{
		chartURL:  strings.TrimRight(chartURL, "/"),
		searchURL: searchURL,
		http:      xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		limiter:   rate.NewLimiter(2, 4),
		l:         applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

func (r *chartResult) metadata() models.Metadata {
	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}
	return models.Metadata{DisplayName: strings.TrimSpace(name), Currency: strings.ToUpper(strings.TrimSpace(r.Meta.Currency))}
}

// FetchBars downloads one symbol's chart and shapes it like a multi-ticker
// download: labels are (field, symbol) pairs.
func (c *Client) FetchBars(ctx context.Context, symbol, period, interval string) (*models.RawFrame, error) {
	res, err := c.chart(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", symbol, ErrEmptyResponse)
	}

	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}
	series := [][]*float64{q.Open, q.High, q.Low, q.Close, adj, q.Volume}

	f := &models.RawFrame{
		Symbol: symbol,
		Columns: [][]string{
			{"Open", symbol}, {"High", symbol}, {"Low", symbol},
			{"Close", symbol}, {"Adj Close", symbol}, {"Volume", symbol},
		},
		Index: make([]time.Time, len(res.Timestamp)),
		Rows:  make([][]*float64, len(res.Timestamp)),
		Meta:  res.metadata(),
	}
	for i, ts := range res.Timestamp {
		f.Index[i] = time.Unix(ts, 0).UTC()
		row := make([]*float64, len(series))
		for j, s := range series {
			if i < len(s) {
				row[j] = s[i]
			}
		}
		f.Rows[i] = row
	}
	return f, nil
}

func (c *Client) chart(ctx context.Context, symbol, period, interval string) (*chartResult, error) {
	var resp chartResponse
	err := c.getJSON(ctx, c.chartURL+"/"+url.PathEscape(symbol), map[string][]string{
		"range":          {period},
		"interval":       {interval},
		"includePrePost": {"false"},
		"events":         {"div,splits"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %w", symbol, resp.Chart.Error.Description, drepo.ErrPermanent)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrEmptyResponse)
	}
	return &resp.Chart.Result[0], nil
}

func (c *Client) getJSON(ctx context.Context, u string, query map[string][]string, dest interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		URL:         u,
		QueryParams: query,
		Headers:     map[string]string{"Accept": "application/json"},
	}, dest)
	c.l.Debug("yahoo request",
		applogger.String("url", u),
		applogger.Duration("elapsed_ms", time.Since(start)),
		applogger.Bool("ok", err == nil))
	return classify(err)
}

// classify marks client errors other than throttling as permanent so callers
// do not retry unknown symbols.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		if !se.Temporary() && se.Code >= 400 {
			return fmt.Errorf("%w: %w", drepo.ErrPermanent, err)
		}
	}
	return err
}

var _ drepo.MarketData = (*Client)(nil)
