package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasknest_push_total",
		Help: "Live push attempts by target kind and result.",
	}, []string{"target", "result"})

	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasknest_ws_connections",
		Help: "Currently registered websocket connections.",
	})
)
