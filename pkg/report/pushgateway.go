package report

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricsNamespace  = "hivemon"
	defaultJobName    = "hivemon"
	instanceGroupName = "instance"
)

// Pushgateway denotes a Prometheus Pushgateway. Since the node is a short-lived
// job (it is powered down between cycles) metrics are pushed instead of scraped
type Pushgateway struct {
	URL      string
	Job      string
	Instance string
	Timeout  time.Duration
}

// Name returns a short identifier of the sink
func (p *Pushgateway) Name() string {
	return "pushgateway"
}

// Submit pushes one gauge per field (replacing the metrics of the last cycle)
func (p *Pushgateway) Submit(ctx context.Context, fields Fields) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job := p.Job
	if job == "" {
		job = defaultJobName
	}

	pusher := push.New(p.URL, job)
	if p.Instance != "" {
		pusher = pusher.Grouping(instanceGroupName, p.Instance)
	}

	for _, f := range fields {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      f.Name,
			Help:      "Last reading of " + f.Name,
		})
		gauge.Set(f.Value)
		pusher = pusher.Collector(gauge)
	}

	lastPush := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "last_push_timestamp_seconds",
		Help:      "Unix time of the last successful cycle",
	})
	lastPush.SetToCurrentTime()

	return pusher.Collector(lastPush).PushContext(ctx)
}
