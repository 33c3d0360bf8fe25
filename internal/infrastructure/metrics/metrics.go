package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_connected_clients",
		Help: "Number of currently connected websocket clients.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_active_rooms",
		Help: "Number of rooms with at least one connected client.",
	})

	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_events_broadcast_total",
		Help: "Events broadcast to room clients, by event type.",
	}, []string{"type"})

	IntentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_intents_rejected_total",
		Help: "Client intents rejected by the server, by intent type.",
	}, []string{"intent"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_uploads_total",
		Help: "File upload attempts, by outcome.",
	}, []string{"outcome"})

	DroppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_dropped_messages_total",
		Help: "Outbound events dropped because a client buffer was full.",
	})
)
