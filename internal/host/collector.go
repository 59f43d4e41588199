// Package host exposes resource usage of the machine the exporter runs on.
package host

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

const sampleTimeout = 2 * time.Second

// Collector samples cpu, memory and network throughput at scrape time.
type Collector struct {
	log *slog.Logger

	cpuPercent *prometheus.Desc
	memPercent *prometheus.Desc
	upMbps     *prometheus.Desc
	downMbps   *prometheus.Desc

	mu      sync.Mutex
	lastNet *net.IOCountersStat
	lastAt  time.Time
}

func New(namespace string, log *slog.Logger) *Collector {
	return &Collector{
		log: log,
		cpuPercent: prometheus.NewDesc(prometheus.BuildFQName(namespace, "exporter_host", "cpu_percent"),
			"CPU usage of the exporter host in percent", nil, nil),
		memPercent: prometheus.NewDesc(prometheus.BuildFQName(namespace, "exporter_host", "memory_percent"),
			"Memory usage of the exporter host in percent", nil, nil),
		upMbps: prometheus.NewDesc(prometheus.BuildFQName(namespace, "exporter_host", "bandwidth_up_mbps"),
			"Outbound throughput of the exporter host since the previous scrape", nil, nil),
		downMbps: prometheus.NewDesc(prometheus.BuildFQName(namespace, "exporter_host", "bandwidth_down_mbps"),
			"Inbound throughput of the exporter host since the previous scrape", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuPercent
	ch <- c.memPercent
	ch <- c.upMbps
	ch <- c.downMbps
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	if cpuPct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		c.log.Debug("host cpu sample failed", "err", err)
	} else if len(cpuPct) > 0 {
		ch <- prometheus.MustNewConstMetric(c.cpuPercent, prometheus.GaugeValue, cpuPct[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.log.Debug("host memory sample failed", "err", err)
	} else if vm != nil {
		ch <- prometheus.MustNewConstMetric(c.memPercent, prometheus.GaugeValue, vm.UsedPercent)
	}

	if up, down, ok := c.netThroughput(ctx); ok {
		ch <- prometheus.MustNewConstMetric(c.upMbps, prometheus.GaugeValue, up)
		ch <- prometheus.MustNewConstMetric(c.downMbps, prometheus.GaugeValue, down)
	}
}

// netThroughput needs two samples; the first call only primes the baseline.
func (c *Collector) netThroughput(ctx context.Context) (float64, float64, bool) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(stats) == 0 {
		if err != nil {
			c.log.Debug("host net sample failed", "err", err)
		}
		return 0, 0, false
	}
	return c.throughput(stats[0], time.Now())
}

func (c *Collector) throughput(total net.IOCountersStat, now time.Time) (float64, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastNet == nil {
		c.lastNet = &net.IOCountersStat{}
		*c.lastNet = total
		c.lastAt = now
		return 0, 0, false
	}

	elapsed := now.Sub(c.lastAt).Seconds()
	if elapsed <= 0 {
		*c.lastNet = total
		c.lastAt = now
		return 0, 0, false
	}

	upDelta := diffUint64(total.BytesSent, c.lastNet.BytesSent)
	downDelta := diffUint64(total.BytesRecv, c.lastNet.BytesRecv)

	*c.lastNet = total
	c.lastAt = now

	return bytesToMbps(upDelta, elapsed), bytesToMbps(downDelta, elapsed), true
}

func diffUint64(curr, prev uint64) uint64 {
	if curr >= prev {
		return curr - prev
	}
	return 0
}

func bytesToMbps(delta uint64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return (float64(delta) * 8) / (seconds * 1_000_000)
}
