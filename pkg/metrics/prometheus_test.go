package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordInstrument("ok")
	r.RecordInstrument("ok")
	r.RecordInstrument("skipped")
	r.RecordRowsDropped("null_close", 3)
	r.RecordRowsDropped("invalid", 0)
	r.RecordCacheAccess("snapshot", true)
	r.RecordCacheAccess("snapshot", false)
	r.RecordCacheAccess("snapshot", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.instruments.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.instruments.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rowsDropped.WithLabelValues("null_close")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheAccess.WithLabelValues("snapshot", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheAccess.WithLabelValues("snapshot", "miss")))
}
