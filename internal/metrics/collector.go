// Package metrics exposes storage diagnostics as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"feedstore/internal/feed"
)

// TaskCounter reports how many tasks of each type have been submitted.
type TaskCounter interface {
	Counts() map[feed.TaskType]int
}

// Collector reads the storages' Dump counters on every scrape.
type Collector struct {
	content feed.ContentStorage
	journal feed.JournalStorage
	tasks   TaskCounter

	contentOps     *prometheus.Desc
	contentEntries *prometheus.Desc
	journalOps     *prometheus.Desc
	journalTouches *prometheus.Desc
	taskCount      *prometheus.Desc
}

// NewCollector creates a Collector over the given storages.
func NewCollector(content feed.ContentStorage, journal feed.JournalStorage) *Collector {
	return &Collector{
		content: content,
		journal: journal,
		contentOps: prometheus.NewDesc(
			"feedstore_content_operations_total",
			"Content storage operations by kind.",
			[]string{"op"}, nil,
		),
		contentEntries: prometheus.NewDesc(
			"feedstore_content_entries",
			"Entries currently held by the content storage.",
			nil, nil,
		),
		journalOps: prometheus.NewDesc(
			"feedstore_journal_operations_total",
			"Journal storage operations by kind.",
			[]string{"op"}, nil,
		),
		journalTouches: prometheus.NewDesc(
			"feedstore_journal_touches_total",
			"Operations applied to each journal.",
			[]string{"journal"}, nil,
		),
		taskCount: prometheus.NewDesc(
			"feedstore_tasks_total",
			"Tasks submitted to the task queue by type.",
			[]string{"type"}, nil,
		),
	}
}

// WithTasks adds task queue counts to the collected metrics.
func (c *Collector) WithTasks(tasks TaskCounter) *Collector {
	c.tasks = tasks
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.contentOps
	ch <- c.contentEntries
	ch <- c.journalOps
	ch <- c.journalTouches
	ch <- c.taskCount
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.content != nil {
		cc := c.content.Dump()
		for op, v := range map[string]int{
			"get":     cc.Gets,
			"get_all": cc.GetAlls,
			"insert":  cc.Inserts,
			"update":  cc.Updates,
			"delete":  cc.Deletes,
		} {
			ch <- prometheus.MustNewConstMetric(c.contentOps, prometheus.CounterValue, float64(v), op)
		}
		ch <- prometheus.MustNewConstMetric(c.contentEntries, prometheus.GaugeValue, float64(cc.Size))
	}

	if c.journal != nil {
		jc := c.journal.Dump()
		for op, v := range map[string]int{
			"read":   jc.Reads,
			"append": jc.Appends,
			"copy":   jc.Copies,
			"delete": jc.Deletes,
		} {
			ch <- prometheus.MustNewConstMetric(c.journalOps, prometheus.CounterValue, float64(v), op)
		}
		for name, v := range journalLabels(jc.PerJournal) {
			ch <- prometheus.MustNewConstMetric(c.journalTouches, prometheus.CounterValue, float64(v), name)
		}
	}

	if c.tasks != nil {
		for typ, v := range c.tasks.Counts() {
			ch <- prometheus.MustNewConstMetric(c.taskCount, prometheus.CounterValue, float64(v), typ.String())
		}
	}
}

// journalLabels keys per-journal counts by a valid UTF-8 label value. Names
// that only differ in invalid bytes share one series.
func journalLabels(perJournal map[string]int) map[string]int {
	out := make(map[string]int, len(perJournal))
	for name, v := range perJournal {
		out[strings.ToValidUTF8(name, "\uFFFD")] += v
	}
	return out
}

var _ prometheus.Collector = (*Collector)(nil)

// WriteText gathers collectors into a fresh registry and writes them in the
// Prometheus text exposition format.
func WriteText(w io.Writer, collectors ...prometheus.Collector) error {
	reg := prometheus.NewPedanticRegistry()
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering collector: %w", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}
