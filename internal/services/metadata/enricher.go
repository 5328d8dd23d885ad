package metadata

import (
	"context"
	"strings"
	"time"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/service"
	"StockPilot/pkg/cache"
	applogger "StockPilot/pkg/logger"
)

const cachePrefix = "metadata"

// Enricher resolves display name and currency. Each missing field is taken
// from the first source that reports it; whatever is still missing gets the
// fallback values. It never returns an error.
type Enricher struct {
	primary   drepo.MetadataSource
	secondary []drepo.MetadataSource
	cache     cache.Service
	ttl       time.Duration
	l         *applogger.Logger
}

type Option func(*Enricher)

func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(e *Enricher) {
		e.cache = c
		e.ttl = ttl
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.l = l
		}
	}
}

// New builds an enricher. primary is consulted only when the caller knows
// nothing about the instrument; secondary sources fill remaining gaps.
func New(primary drepo.MetadataSource, secondary []drepo.MetadataSource, opts ...Option) *Enricher {
	e := &Enricher{
		primary:   primary,
		secondary: secondary,
		ttl:       24 * time.Hour,
		l:         applogger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enricher) Resolve(ctx context.Context, symbol string, known models.Metadata) models.Metadata {
	md := clean(known)
	if md.Complete() {
		return md
	}

	key := cache.Key(cachePrefix, symbol)
	if e.cache != nil {
		var cached models.Metadata
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			md = md.Merge(cached)
			if md.Complete() {
				return md
			}
		}
	}

	resolvedBefore := md
	// known metadata comes from the chart response the primary would repeat,
	// so a partial record goes straight to the secondary sources
	if md == (models.Metadata{}) && e.primary != nil {
		md = e.lookup(ctx, e.primary, symbol, md)
	}
	for _, src := range e.secondary {
		if md.Complete() {
			break
		}
		md = e.lookup(ctx, src, symbol, md)
	}

	if e.cache != nil && e.ttl > 0 && md != resolvedBefore && md != (models.Metadata{}) {
		if err := e.cache.Set(ctx, key, md, e.ttl); err != nil {
			e.l.Debug("metadata cache set failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return Fallback(symbol, md)
}

func (e *Enricher) lookup(ctx context.Context, src drepo.MetadataSource, symbol string, md models.Metadata) models.Metadata {
	got, err := src.Lookup(ctx, symbol)
	if err != nil {
		e.l.Warn("metadata source failed",
			applogger.String("symbol", symbol),
			applogger.String("source", src.Name()),
			applogger.Error(err))
		return md
	}
	return md.Merge(clean(got))
}

// Fallback fills display name with the instrument id and currency with
// UNKNOWN when they are still empty.
func Fallback(symbol string, md models.Metadata) models.Metadata {
	return md.Merge(models.Metadata{DisplayName: symbol, Currency: models.UnknownCurrency})
}

func clean(md models.Metadata) models.Metadata {
	return models.Metadata{
		DisplayName: strings.TrimSpace(md.DisplayName),
		Currency:    strings.ToUpper(strings.TrimSpace(md.Currency)),
	}
}

var _ service.MetadataResolver = (*Enricher)(nil)
