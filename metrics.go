package fbsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports scheduler statistics as Prometheus metrics.
type Collector struct {
	s *Scheduler

	running     *prometheus.Desc
	targetFPS   *prometheus.Desc
	measuredFPS *prometheus.Desc
	frames      *prometheus.Desc
	errors      *prometheus.Desc
	changed     *prometheus.Desc
	lastPass    *prometheus.Desc
}

// NewCollector returns a collector for s. The device path is added as a
// constant "device" label.
func NewCollector(s *Scheduler) *Collector {
	labels := prometheus.Labels{"device": s.dev.Path()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("fbsync", "", name), help, nil, labels)
	}
	return &Collector{
		s:           s,
		running:     desc("running", "Whether the scheduler is running."),
		targetFPS:   desc("target_fps", "Target frame rate."),
		measuredFPS: desc("measured_fps", "Frame rate measured over the last full second."),
		frames:      desc("frames_total", "Completed sync passes."),
		errors:      desc("errors_total", "Failed sync passes."),
		changed:     desc("changed_pixels_total", "Device pixels modified by sync passes."),
		lastPass:    desc("last_pass_seconds", "Duration of the last completed sync pass."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.running
	ch <- c.targetFPS
	ch <- c.measuredFPS
	ch <- c.frames
	ch <- c.errors
	ch <- c.changed
	ch <- c.lastPass
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.s.Stats()
	var running float64
	if stats.State == Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(c.targetFPS, prometheus.GaugeValue, float64(stats.TargetFPS))
	ch <- prometheus.MustNewConstMetric(c.measuredFPS, prometheus.GaugeValue, float64(stats.MeasuredFPS))
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(stats.Frames))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(stats.Errors))
	ch <- prometheus.MustNewConstMetric(c.changed, prometheus.CounterValue, float64(stats.Changed))
	ch <- prometheus.MustNewConstMetric(c.lastPass, prometheus.GaugeValue, stats.LastPass.Seconds())
}

// Interface checks.
var _ prometheus.Collector = (*Collector)(nil)
