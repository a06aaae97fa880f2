package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slacktranslate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slacktranslate_http_request_timeouts_total",
			Help: "Total number of requests answered with 408 after the request deadline",
		},
	)

	// OAuth metrics
	OAuthCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_oauth_callbacks_total",
			Help: "Total number of OAuth callbacks by outcome",
		},
		[]string{"outcome"},
	)

	// Slack metrics
	SlackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_slack_events_total",
			Help: "Total number of Slack events dispatched",
		},
		[]string{"event_type", "outcome"},
	)

	SlackCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_slack_commands_total",
			Help: "Total number of slash commands received",
		},
		[]string{"outcome"},
	)

	SlackAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_slack_api_calls_total",
			Help: "Total number of Slack Web API calls",
		},
		[]string{"method", "status"},
	)

	ConfigSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_channel_config_saves_total",
			Help: "Total number of channel configuration saves",
		},
		[]string{"status"},
	)

	// Translation metrics
	Translations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_translations_total",
			Help: "Total number of translation gateway calls",
		},
		[]string{"provider", "status"},
	)

	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slacktranslate_translation_duration_seconds",
			Help:    "Duration of translation gateway calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	InstalledWorkspaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slacktranslate_installed_workspaces",
			Help: "Number of workspaces with a stored installation",
		},
	)

	// Database metrics
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slacktranslate_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slacktranslate_database_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Status turns an error into the "success"/"error" label used across counters
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
