package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AwardsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_awards_granted_total",
		Help: "The total number of XP awards persisted to the user table",
	})
	AwardsOnCooldownTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_awards_on_cooldown_total",
		Help: "The total number of activity events dropped by the cooldown gate",
	})
	EventsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_events_rejected_total",
		Help: "The total number of activity events rejected by policy (e.g. bot authors)",
	})
	LevelUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_level_ups_total",
		Help: "The total number of level increments granted",
	})
	StoreLoadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_store_load_errors_total",
		Help: "The total number of failed user table reads",
	})
	StoreSaveErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_store_save_errors_total",
		Help: "The total number of failed user table writes",
	})
	MalformedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levelbot_malformed_rows_total",
		Help: "The total number of user table rows skipped because they failed to parse",
	})
)
