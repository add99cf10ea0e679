package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"projdash/catalog"
)

func TestMetricsRecordDecision(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(Decision{Kind: Rewrite, Scheme: "pair"})
	m.RecordDecision(Decision{Kind: Rewrite, Scheme: "pair"})
	m.RecordDecision(Decision{Kind: PassThrough})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("rewrite", "pair")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("passthrough", "")))
}

func TestMetricsObserveScan(t *testing.T) {
	m := NewMetrics()
	m.ObserveScan(time.Millisecond, exampleSnapshot(), nil)
	m.ObserveScan(time.Millisecond, nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.categories))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.projects))
	assert.Equal(t, 1, testutil.CollectAndCount(m.scanDuration))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveScan(0, catalog.Group(nil, catalog.DefaultRules()), nil)

	w := get(m.Handler(), "/-/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "projdash_catalog_scans_total")
	assert.Contains(t, body, "go_goroutines")
}
