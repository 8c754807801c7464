package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 盘口运行指标。engine直接打点，cmd里起一个/metrics端口暴露出去
var (
	BetsPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bullbear_bets_placed_total",
		Help: "number of user bets accepted, by position",
	}, []string{"position"})

	ClaimsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bullbear_claims_paid_total",
		Help: "total value paid out through claims and refunds",
	})

	CurrentEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bullbear_current_epoch",
		Help: "epoch of the round currently open for staking",
	})

	TreasuryBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bullbear_treasury_balance",
		Help: "value currently held by the engine",
	})
)

func init() {
	prometheus.MustRegister(BetsPlaced)
	prometheus.MustRegister(ClaimsPaid)
	prometheus.MustRegister(CurrentEpoch)
	prometheus.MustRegister(TreasuryBalance)
}

// 阻塞运行，调用方自己决定放不放goroutine里
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%v", port), mux)
}
