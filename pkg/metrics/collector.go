package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ops-vhost/pkg/logging"
	"github.com/ops-vhost/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector Prometheus metrics collector for a registry. Gauges are read from
// GetStats at collect time; counters are fed through the registry.Observer
// methods.
type Collector struct {
	GetStats func() registry.Stats

	// Info metric (always 1)
	runInfo *prometheus.Desc

	// Registry gauges
	groups     *prometheus.Desc
	hosts      *prometheus.Desc
	interfaces *prometheus.Desc
	locations  *prometheus.Desc
	defaults   *prometheus.Desc

	// Event counters
	registrationsTotal *prometheus.Desc
	splitsTotal        *prometheus.Desc
	slotWritesTotal    *prometheus.Desc

	// Metrics counters (protected by mutex)
	metricsLock sync.RWMutex
	// keyed by "policy:outcome"
	registrations map[string]float64
	splits        map[string]float64
	slotWrites    map[string]float64
}

var _ registry.Observer = (*Collector)(nil)

// NewCollector creates a new metrics collector
func NewCollector(getStats func() registry.Stats) *Collector {
	return &Collector{
		GetStats: getStats,
		runInfo: prometheus.NewDesc(
			"vhost_run_info",
			"Generator run info metric (always 1).",
			[]string{"run"},
			nil,
		),
		groups: prometheus.NewDesc(
			"vhost_registry_groups",
			"Number of server groups in the registry",
			nil,
			nil,
		),
		hosts: prometheus.NewDesc(
			"vhost_registry_hosts",
			"Number of distinct hosts in the registry",
			nil,
			nil,
		),
		interfaces: prometheus.NewDesc(
			"vhost_registry_interfaces",
			"Number of distinct interfaces in the registry",
			nil,
			nil,
		),
		locations: prometheus.NewDesc(
			"vhost_registry_locations",
			"Number of location entries over all groups",
			nil,
			nil,
		),
		defaults: prometheus.NewDesc(
			"vhost_registry_default_backends",
			"Number of groups with a default backend",
			nil,
			nil,
		),
		registrationsTotal: prometheus.NewDesc(
			"vhost_registrations_total",
			"Total registrations by overwrite policy and outcome",
			[]string{"policy", "outcome"},
			nil,
		),
		splitsTotal: prometheus.NewDesc(
			"vhost_group_splits_total",
			"Total group splits by kind (host, interface)",
			[]string{"kind"},
			nil,
		),
		slotWritesTotal: prometheus.NewDesc(
			"vhost_slot_writes_total",
			"Total backend slot writes by action (set, kept, replaced)",
			[]string{"action"},
			nil,
		),
		registrations: make(map[string]float64),
		splits:        make(map[string]float64),
		slotWrites:    make(map[string]float64),
	}
}

// RecordRegistration counts one registration attempt.
func (c *Collector) RecordRegistration(policy, outcome string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.registrations[policy+":"+outcome]++
}

// RecordSplit counts one group split.
func (c *Collector) RecordSplit(kind string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.splits[kind]++
}

// RecordSlotWrite counts one backend slot write.
func (c *Collector) RecordSlotWrite(action string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.slotWrites[action]++
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runInfo
	ch <- c.groups
	ch <- c.hosts
	ch <- c.interfaces
	ch <- c.locations
	ch <- c.defaults
	ch <- c.registrationsTotal
	ch <- c.splitsTotal
	ch <- c.slotWritesTotal
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.runInfo, prometheus.GaugeValue, 1, logging.GetRunID())

	if c.GetStats != nil {
		s := c.GetStats()
		ch <- prometheus.MustNewConstMetric(c.groups, prometheus.GaugeValue, float64(s.Groups))
		ch <- prometheus.MustNewConstMetric(c.hosts, prometheus.GaugeValue, float64(s.Hosts))
		ch <- prometheus.MustNewConstMetric(c.interfaces, prometheus.GaugeValue, float64(s.Interfaces))
		ch <- prometheus.MustNewConstMetric(c.locations, prometheus.GaugeValue, float64(s.Locations))
		ch <- prometheus.MustNewConstMetric(c.defaults, prometheus.GaugeValue, float64(s.Defaults))
	}

	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	for key, value := range c.registrations {
		parts := strings.Split(key, ":")
		if len(parts) == 2 {
			ch <- prometheus.MustNewConstMetric(
				c.registrationsTotal,
				prometheus.CounterValue,
				value,
				parts[0], parts[1],
			)
		}
	}
	for kind, value := range c.splits {
		ch <- prometheus.MustNewConstMetric(c.splitsTotal, prometheus.CounterValue, value, kind)
	}
	for action, value := range c.slotWrites {
		ch <- prometheus.MustNewConstMetric(c.slotWritesTotal, prometheus.CounterValue, value, action)
	}
}

// WriteTextfile writes the metrics of c to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, c prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	logging.Debugf("[metrics] wrote textfile %s", path)
	return nil
}
