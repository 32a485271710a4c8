package peergroup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dep2p/go-overlay/pkg/types"
)

const (
	metricsNamespace = "overlay"
	metricsSubsystem = "peergroup"
)

// metrics 节点组指标
type metrics struct {
	connections    *prometheus.GaugeVec
	reportedPeers  prometheus.Gauge
	persistedPeers prometheus.Gauge
	state          prometheus.Gauge

	closedConnections *prometheus.CounterVec
	stepFailures      *prometheus.CounterVec
	exchangeFailures  prometheus.Counter

	maintenanceDuration prometheus.Histogram
}

// newMetrics 在 reg 上注册指标，reg 为 nil 时使用私有 registry
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		connections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "connections",
			Help:      "Number of running connections by direction.",
		}, []string{"direction"}),
		reportedPeers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reported_peers",
			Help:      "Number of reported peers.",
		}),
		persistedPeers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "persisted_peers",
			Help:      "Number of persisted peers.",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "state",
			Help:      "Service state (0=NEW, 1=STARTING, 2=RUNNING, 3=STOPPING, 4=TERMINATED).",
		}),
		closedConnections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "closed_connections_total",
			Help:      "Connections closed by the maintenance cycle, by reason.",
		}, []string{"reason"}),
		stepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "step_failures_total",
			Help:      "Maintenance steps that returned an error or panicked.",
		}, []string{"step"}),
		exchangeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "peer_exchange_failures_total",
			Help:      "Further peer exchanges that failed or timed out.",
		}),
		maintenanceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "maintenance_duration_seconds",
			Help:      "Duration of one maintenance cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}

// observeGroup 刷新集合与连接数量
func (m *metrics) observeGroup(g *PeerGroup) {
	m.connections.WithLabelValues(types.DirInbound.String()).Set(float64(len(g.InboundConnections())))
	m.connections.WithLabelValues(types.DirOutbound.String()).Set(float64(len(g.OutboundConnections())))
	m.reportedPeers.Set(float64(g.NumReportedPeers()))
	m.persistedPeers.Set(float64(g.NumPersistedPeers()))
}
