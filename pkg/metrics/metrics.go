package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// SettlementsTotal counts terminal event transitions by final status.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcontrol_settlements_total",
		Help: "Settled events by terminal status",
	}, []string{"status"})

	// PayoutsTotal counts individual winner payouts by result.
	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcontrol_payouts_total",
		Help: "Winner payout attempts by result",
	}, []string{"result"})

	// RefundsTotal counts individual entry refunds by result.
	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcontrol_refunds_total",
		Help: "Entry refund attempts by result",
	}, []string{"result"})

	// RecoveriesTotal counts events force-terminalized by the recovery sweep.
	RecoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventcontrol_recoveries_total",
		Help: "Events recovered from an interrupted settlement run",
	})

	// NoticesConsumedTotal counts settlement notices taken off the queue.
	NoticesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventcontrol_notices_consumed_total",
		Help: "Settlement notices consumed from the broker",
	})
)

// Serve exposes /metrics on addr. Blocks; run it in its own goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("Metrics server stopped: %v", err)
	}
}
