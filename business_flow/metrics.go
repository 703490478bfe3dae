package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	campaignRoutes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rotalink",
			Name:      "campaign_routes_total",
			Help:      "Campaign visit routing attempts by outcome",
		},
		[]string{"outcome"},
	)

	campaignCycleResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rotalink",
			Name:      "campaign_cycle_resets_total",
			Help:      "Rotation cycles completed across all campaigns",
		},
	)

	campaignRouteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rotalink",
			Name:      "campaign_route_duration_seconds",
			Help:      "Time spent in the routing unit of work, geolocation excluded",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

const (
	routeOutcomeRouted     = "routed"
	routeOutcomeNoEligible = "no_eligible_operator"
	routeOutcomeExhausted  = "routing_exhausted"
	routeOutcomeStorage    = "storage_error"
)
