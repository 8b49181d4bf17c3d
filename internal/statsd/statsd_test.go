// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package statsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexustrace/nexustrace-go/internal/pipeline"
)

type fakeClient struct {
	counts map[string]int64
	gauges map[string]float64
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{counts: map[string]int64{}, gauges: map[string]float64{}}
}

func (f *fakeClient) Gauge(name string, value float64, _ []string, _ float64) error {
	f.gauges[name] = value
	return nil
}

func (f *fakeClient) Count(name string, value int64, _ []string, _ float64) error {
	f.counts[name] += value
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestReportOnceEmitsDeltas(t *testing.T) {
	var stats pipeline.Statistics
	client := newFakeClient()
	r := NewReporterWithClient(client, &stats, nil)

	stats.NoteActivityCreated()
	stats.NoteActivityCreated()
	r.ReportOnce()
	assert.Equal(t, int64(2), client.counts["activities_created"])

	stats.NoteActivityCreated()
	r.ReportOnce()
	assert.Equal(t, int64(3), client.counts["activities_created"], "second report adds only the delta")
}

func TestReportOnceEmitsMaxQueueDepthAsGauge(t *testing.T) {
	var stats pipeline.Statistics
	client := newFakeClient()
	r := NewReporterWithClient(client, &stats, nil)

	stats.NoteMaxQueueDepth(17)
	r.ReportOnce()
	assert.Equal(t, float64(17), client.gauges["max_queue_depth"])
}

func TestReportOnceNoOpWithoutStats(t *testing.T) {
	client := newFakeClient()
	r := NewReporterWithClient(client, nil, nil)
	r.ReportOnce()
	assert.Empty(t, client.counts)
}

func TestAttachBindsStats(t *testing.T) {
	var stats pipeline.Statistics
	client := newFakeClient()
	r := NewReporterWithClient(client, nil, nil)
	r.Attach(&stats)
	stats.NoteRestart()
	r.ReportOnce()
	require.Equal(t, int64(1), client.counts["restarts"])
}
