// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package promstats adapts pipeline.Statistics to prometheus.Collector, for
// hosts that scrape Prometheus instead of shipping statsd.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexustrace/nexustrace-go/internal/pipeline"
)

// Collector implements prometheus.Collector over a *pipeline.Statistics
// snapshot, read fresh on every scrape.
type Collector struct {
	stats *pipeline.Statistics

	activitiesCreated   *prometheus.Desc
	activitiesCompleted *prometheus.Desc
	itemsEnqueued       *prometheus.Desc
	itemsProcessed      *prometheus.Desc
	itemsDropped        *prometheus.Desc
	restarts            *prometheus.Desc
	exceptionsTracked   *prometheus.Desc
	maxQueueDepth       *prometheus.Desc
	circuitOpens        *prometheus.Desc
}

// NewCollector wraps stats for registration with a prometheus.Registry.
func NewCollector(stats *pipeline.Statistics) *Collector {
	ns := "nexustrace"
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(ns+"_"+name, help, nil, nil)
	}
	return &Collector{
		stats:               stats,
		activitiesCreated:   mk("activities_created_total", "Spans started."),
		activitiesCompleted: mk("activities_completed_total", "Spans finished."),
		itemsEnqueued:       mk("items_enqueued_total", "Work items accepted into the pipeline."),
		itemsProcessed:      mk("items_processed_total", "Work items successfully dispatched."),
		itemsDropped:        mk("items_dropped_total", "Work items dropped on overflow or while closed."),
		restarts:            mk("restarts_total", "Consumer goroutine restarts after failure."),
		exceptionsTracked:   mk("exceptions_tracked_total", "Exceptions recorded on spans."),
		maxQueueDepth:       mk("max_queue_depth", "High-water mark of the pipeline queue."),
		circuitOpens:        mk("circuit_opens_total", "Times the delivery circuit breaker tripped."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activitiesCreated
	ch <- c.activitiesCompleted
	ch <- c.itemsEnqueued
	ch <- c.itemsProcessed
	ch <- c.itemsDropped
	ch <- c.restarts
	ch <- c.exceptionsTracked
	ch <- c.maxQueueDepth
	ch <- c.circuitOpens
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.activitiesCreated, prometheus.CounterValue, float64(snap.ActivitiesCreated))
	ch <- prometheus.MustNewConstMetric(c.activitiesCompleted, prometheus.CounterValue, float64(snap.ActivitiesCompleted))
	ch <- prometheus.MustNewConstMetric(c.itemsEnqueued, prometheus.CounterValue, float64(snap.ItemsEnqueued))
	ch <- prometheus.MustNewConstMetric(c.itemsProcessed, prometheus.CounterValue, float64(snap.ItemsProcessed))
	ch <- prometheus.MustNewConstMetric(c.itemsDropped, prometheus.CounterValue, float64(snap.ItemsDropped))
	ch <- prometheus.MustNewConstMetric(c.restarts, prometheus.CounterValue, float64(snap.Restarts))
	ch <- prometheus.MustNewConstMetric(c.exceptionsTracked, prometheus.CounterValue, float64(snap.ExceptionsTracked))
	ch <- prometheus.MustNewConstMetric(c.maxQueueDepth, prometheus.GaugeValue, float64(snap.MaxQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.circuitOpens, prometheus.CounterValue, float64(snap.CircuitOpens))
}
