package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scorekeep"

var (
	InvitationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_created_total",
		Help:      "Invitation rows written, by game type.",
	}, []string{"game_type"})

	InvitationResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitation_responses_total",
		Help:      "Invitation responses handled, by response and outcome.",
	}, []string{"response", "outcome"})

	SessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Game session state transitions, by target state.",
	}, []string{"state"})

	RealtimeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Server pushed events, by event name and whether a connection was found.",
	}, []string{"event", "delivered"})

	RealtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections",
		Help:      "Users currently registered on the realtime channel.",
	})

	SnapshotSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_saves_total",
		Help:      "Active game snapshot saves, by result.",
	}, []string{"result"})

	CompletedGames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completed_games_total",
		Help:      "Games moved to the completed table, by game type.",
	}, []string{"game_type"})

	SweptSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "swept_sessions_total",
		Help:      "Abandoned sessions cancelled by the sweeper.",
	})
)

// NewRegistry returns a registry with every collector of this package plus
// the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		InvitationsCreated,
		InvitationResponses,
		SessionTransitions,
		RealtimeEvents,
		RealtimeConnections,
		SnapshotSaves,
		CompletedGames,
		SweptSessions,
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
