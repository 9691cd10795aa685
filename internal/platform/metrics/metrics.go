package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	VotesCast          prometheus.Counter
	VoteConflicts      prometheus.Counter
	BallotsRejected    *prometheus.CounterVec
	ElectionsAutoEnded prometheus.Counter
	UsersRegistered    *prometheus.CounterVec
	OTPsIssued         *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTest registers metrics on a throwaway registry so parallel tests do
// not collide on the default registerer.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_votes_cast_total",
			Help: "Total number of ballots admitted.",
		}),
		VoteConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_vote_conflicts_total",
			Help: "Total number of duplicate-ballot attempts rejected.",
		}),
		BallotsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_ballots_rejected_total",
			Help: "Total number of ballots rejected before persistence.",
		}, []string{"reason"}),
		ElectionsAutoEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_elections_auto_ended_total",
			Help: "Total number of elections ended by the auto-close sweep.",
		}),
		UsersRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_users_registered_total",
			Help: "Total number of registered users by role.",
		}, []string{"role"}),
		OTPsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_otps_issued_total",
			Help: "Total number of OTP codes issued by channel.",
		}, []string{"channel"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusvote_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
