package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	JobResultProcessed = "processed"
	JobResultFailed    = "failed"
	JobResultThrottled = "throttled"
	JobResultDropped   = "dropped"
)

var (
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iwown_uploads_total",
			Help: "Device uploads received, by topic.",
		},
		[]string{"topic"},
	)
	UploadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iwown_upload_failures_total",
			Help: "Device uploads that were acknowledged but could not be stored, by topic.",
		},
		[]string{"topic"},
	)
	PostProcessJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iwown_postprocess_jobs_total",
			Help: "Health post-processing jobs, by result.",
		},
		[]string{"result"},
	)
	DashboardFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iwown_dashboard_failures_total",
			Help: "Dashboard reads that failed, by operation.",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(UploadsTotal, UploadFailuresTotal, PostProcessJobsTotal, DashboardFailuresTotal)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
