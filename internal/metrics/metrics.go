package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askledger_requests_created_total",
		Help: "Requests successfully created",
	})

	RequestsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askledger_requests_settled_total",
		Help: "Requests settled, labeled by outcome (fulfilled/reclaimed)",
	}, []string{"outcome"})

	OperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askledger_operation_errors_total",
		Help: "Rejected ledger operations, labeled by operation and error kind",
	}, []string{"op", "kind"})

	EscrowedNano = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "askledger_escrowed_nano",
		Help: "Total nanoton currently held in escrow",
	})

	DepositsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askledger_deposits_credited_total",
		Help: "On-chain deposits credited to accounts by the indexer",
	})
)
