package metrics

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/najahiiii/marzban-exporter/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

type gaugeSpec struct {
	name   string
	help   string
	labels []string
}

// Registry owns every exported gauge. Label combinations are created on
// first observation and never removed.
type Registry struct {
	// mu makes a whole Update visible to gatherers at once.
	mu  sync.RWMutex
	reg *prometheus.Registry

	nodeUsageCoefficient *prometheus.GaugeVec
	nodeUplink           *prometheus.GaugeVec
	nodeDownlink         *prometheus.GaugeVec
	nodeVersionInfo      *prometheus.GaugeVec

	systemMemTotal               *prometheus.GaugeVec
	systemMemUsed                *prometheus.GaugeVec
	systemCPUCores               *prometheus.GaugeVec
	systemCPUUsage               *prometheus.GaugeVec
	systemTotalUser              *prometheus.GaugeVec
	systemOnlineUsers            *prometheus.GaugeVec
	systemUsersActive            *prometheus.GaugeVec
	systemIncomingBandwidth      *prometheus.GaugeVec
	systemOutgoingBandwidth      *prometheus.GaugeVec
	systemIncomingBandwidthSpeed *prometheus.GaugeVec
	systemOutgoingBandwidthSpeed *prometheus.GaugeVec
	systemVersionInfo            *prometheus.GaugeVec

	coreStarted     *prometheus.GaugeVec
	coreVersionInfo *prometheus.GaugeVec

	userUsedTraffic *prometheus.GaugeVec
}

// NewRegistry declares all gauges under namespace (may be empty) and
// registers any extra collectors next to them. A duplicate metric name is
// an error.
func NewRegistry(namespace string, extra ...prometheus.Collector) (*Registry, error) {
	r := &Registry{reg: prometheus.NewRegistry()}

	node := []string{"node_name"}
	targets := []struct {
		dst  **prometheus.GaugeVec
		spec gaugeSpec
	}{
		{&r.nodeUsageCoefficient, gaugeSpec{"node_usage_coefficient", "Node usage coefficient", node}},
		{&r.nodeUplink, gaugeSpec{"node_uplink", "Node uplink bandwidth in bytes", node}},
		{&r.nodeDownlink, gaugeSpec{"node_downlink", "Node downlink bandwidth in bytes", node}},
		{&r.nodeVersionInfo, gaugeSpec{"node_version_info", "Node version information",
			[]string{"node_name", "xray_build_version", "status", "address", "port", "api_port"}}},

		{&r.systemMemTotal, gaugeSpec{"system_mem_total", "Total memory in bytes", nil}},
		{&r.systemMemUsed, gaugeSpec{"system_mem_used", "Used memory in bytes", nil}},
		{&r.systemCPUCores, gaugeSpec{"system_cpu_cores", "Number of CPU cores", nil}},
		{&r.systemCPUUsage, gaugeSpec{"system_cpu_usage", "CPU usage percentage", nil}},
		{&r.systemTotalUser, gaugeSpec{"system_total_user", "Total number of users", nil}},
		{&r.systemOnlineUsers, gaugeSpec{"system_online_users", "Number of online users", nil}},
		{&r.systemUsersActive, gaugeSpec{"system_users_active", "Number of active users", nil}},
		{&r.systemIncomingBandwidth, gaugeSpec{"system_incoming_bandwidth", "Incoming bandwidth in bytes", nil}},
		{&r.systemOutgoingBandwidth, gaugeSpec{"system_outgoing_bandwidth", "Outgoing bandwidth in bytes", nil}},
		{&r.systemIncomingBandwidthSpeed, gaugeSpec{"system_incoming_bandwidth_speed", "Incoming bandwidth speed in bytes per second", nil}},
		{&r.systemOutgoingBandwidthSpeed, gaugeSpec{"system_outgoing_bandwidth_speed", "Outgoing bandwidth speed in bytes per second", nil}},
		{&r.systemVersionInfo, gaugeSpec{"system_version_info", "System version information", []string{"version"}}},

		{&r.coreStarted, gaugeSpec{"core_started", "Core started status", nil}},
		{&r.coreVersionInfo, gaugeSpec{"core_version_info", "Core version information", []string{"version"}}},

		{&r.userUsedTraffic, gaugeSpec{"user_used_traffic", "User used traffic in bytes", []string{"username", "status"}}},
	}

	specs := make([]gaugeSpec, len(targets))
	for i, t := range targets {
		specs[i] = t.spec
	}
	vecs, err := declare(r.reg, namespace, specs)
	if err != nil {
		return nil, err
	}
	for i, t := range targets {
		*t.dst = vecs[i]
	}

	for _, c := range extra {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func declare(reg prometheus.Registerer, namespace string, specs []gaugeSpec) ([]*prometheus.GaugeVec, error) {
	vecs := make([]*prometheus.GaugeVec, 0, len(specs))
	for _, s := range specs {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      s.name,
			Help:      s.help,
		}, s.labels)
		if err := reg.Register(vec); err != nil {
			return nil, fmt.Errorf("register gauge %s: %w", s.name, err)
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

// Update overwrites gauge values from one successful refresh cycle.
func (r *Registry) Update(s *model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range s.Nodes {
		r.nodeUsageCoefficient.WithLabelValues(n.Name).Set(n.UsageCoefficient)
		r.nodeVersionInfo.WithLabelValues(
			n.Name,
			n.XrayVersion,
			n.Status,
			n.Address,
			strconv.Itoa(n.Port),
			strconv.Itoa(n.APIPort),
		).Set(1)
	}

	for _, u := range s.NodeUsages {
		r.nodeUplink.WithLabelValues(u.NodeName).Set(float64(u.Uplink))
		r.nodeDownlink.WithLabelValues(u.NodeName).Set(float64(u.Downlink))
	}

	sys := s.System
	r.systemMemTotal.WithLabelValues().Set(float64(sys.MemTotal))
	r.systemMemUsed.WithLabelValues().Set(float64(sys.MemUsed))
	r.systemCPUCores.WithLabelValues().Set(float64(sys.CPUCores))
	r.systemCPUUsage.WithLabelValues().Set(sys.CPUUsage)
	r.systemTotalUser.WithLabelValues().Set(float64(sys.TotalUser))
	r.systemOnlineUsers.WithLabelValues().Set(float64(sys.OnlineUsers))
	r.systemUsersActive.WithLabelValues().Set(float64(sys.UsersActive))
	r.systemIncomingBandwidth.WithLabelValues().Set(float64(sys.IncomingBandwidth))
	r.systemOutgoingBandwidth.WithLabelValues().Set(float64(sys.OutgoingBandwidth))
	r.systemIncomingBandwidthSpeed.WithLabelValues().Set(float64(sys.IncomingBandwidthSpeed))
	r.systemOutgoingBandwidthSpeed.WithLabelValues().Set(float64(sys.OutgoingBandwidthSpeed))
	r.systemVersionInfo.WithLabelValues(sys.Version).Set(1)

	started := 0.0
	if s.Core.Started {
		started = 1
	}
	r.coreStarted.WithLabelValues().Set(started)
	r.coreVersionInfo.WithLabelValues(s.Core.Version).Set(1)

	for _, u := range s.Users {
		r.userUsedTraffic.WithLabelValues(u.Username, u.Status).Set(float64(u.UsedTraffic))
	}
}

// Gatherer returns a gatherer that never observes a partially applied Update.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return prometheus.GathererFunc(r.gather)
}

func (r *Registry) gather() ([]*dto.MetricFamily, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reg.Gather()
}

// Render serializes the current values in the text exposition format.
// Families come out sorted by name and series by label values, so the
// output is stable between updates.
func (r *Registry) Render() ([]byte, error) {
	mfs, err := r.gather()
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}
