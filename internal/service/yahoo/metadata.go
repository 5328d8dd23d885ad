package yahoo

import (
	"context"
	"fmt"
	"strings"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
)

// ChartMetaSource reads name and currency from a one-day chart request.
type ChartMetaSource struct {
	c *Client
}

func NewChartMetaSource(c *Client) *ChartMetaSource { return &ChartMetaSource{c: c} }

func (s *ChartMetaSource) Name() string { return "chart_meta" }

func (s *ChartMetaSource) Lookup(ctx context.Context, symbol string) (models.Metadata, error) {
	res, err := s.c.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return models.Metadata{}, err
	}
	return res.metadata(), nil
}

// SearchSource resolves names through the quote search endpoint. It cannot
// report currency.
type SearchSource struct {
	c *Client
}

func NewSearchSource(c *Client) *SearchSource { return &SearchSource{c: c} }

func (s *SearchSource) Name() string { return "search" }

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		LongName  string `json:"longname"`
		ShortName string `json:"shortname"`
	} `json:"quotes"`
}

func (s *SearchSource) Lookup(ctx context.Context, symbol string) (models.Metadata, error) {
	var resp searchResponse
	err := s.c.getJSON(ctx, s.c.searchURL, map[string][]string{
		"q":           {symbol},
		"quotesCount": {"5"},
		"newsCount":   {"0"},
	}, &resp)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("search %s: %w", symbol, err)
	}
	for _, q := range resp.Quotes {
		if !strings.EqualFold(q.Symbol, symbol) {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		return models.Metadata{DisplayName: strings.TrimSpace(name)}, nil
	}
	return models.Metadata{}, fmt.Errorf("search %s: no matching quote: %w", symbol, drepo.ErrNotFound)
}

var (
	_ drepo.MetadataSource = (*ChartMetaSource)(nil)
	_ drepo.MetadataSource = (*SearchSource)(nil)
)
