// Package metrics counts API traffic and deletion outcomes for a single run.
//
// The tool exits after one pass, so nothing is scraped. Counters are written
// once, in the text exposition format, to a file the node_exporter textfile
// collector picks up:
//
//	snyk-cleanup --metrics-textfile /var/lib/node_exporter/snyk_cleanup.prom
package metrics

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters of one run. A nil Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	targetsListed  prometheus.Counter
	targetsDeleted prometheus.Counter
	deleteFailures prometheus.Counter
}

// NewRecorder registers all counters on a private registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snyk_cleanup_api_requests_total",
			Help: "API requests by method and status code (0 when no response was received).",
		}, []string{"method", "status"}),
		targetsListed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snyk_cleanup_targets_listed_total",
			Help: "Targets returned by the target listing.",
		}),
		targetsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snyk_cleanup_targets_deleted_total",
			Help: "Targets deleted successfully.",
		}),
		deleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snyk_cleanup_target_delete_failures_total",
			Help: "Target deletions that did not return 204.",
		}),
	}

	r.registry.MustRegister(r.requests, r.targetsListed, r.targetsDeleted, r.deleteFailures)
	return r
}

// ObserveRequest implements snyk.RequestObserver
func (r *Recorder) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (r *Recorder) TargetsListed(n int) {
	if r == nil {
		return
	}
	r.targetsListed.Add(float64(n))
}

func (r *Recorder) TargetDeleted() {
	if r == nil {
		return
	}
	r.targetsDeleted.Inc()
}

func (r *Recorder) TargetDeleteFailed() {
	if r == nil {
		return
	}
	r.deleteFailures.Inc()
}

// WriteTextfile writes all counters to path atomically
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return goerr.Wrap(err, "failed to write metrics textfile", goerr.V("path", path))
	}
	return nil
}
