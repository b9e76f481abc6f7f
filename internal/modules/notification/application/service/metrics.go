package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ledgerWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tasknest_ledger_writes_total",
	Help: "Notification ledger inserts by result.",
}, []string{"result"})
