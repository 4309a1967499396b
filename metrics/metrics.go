// Package metrics contains all application-logic metrics
package metrics

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

var (
	attemptedFills         = metrics.NewCounter("filler_attempted_fills_total")
	attemptedTriggers      = metrics.NewCounter("filler_attempted_triggers_total")
	attemptedSettlePnl     = metrics.NewCounter("filler_attempted_settle_pnl_total")
	sentTxs                = metrics.NewCounter("filler_sent_txs_total")
	landedTxs              = metrics.NewCounter("filler_landed_txs_total")
	expiredTxs             = metrics.NewCounter("filler_expired_txs_total")
	txSimErrors            = metrics.NewCounter("filler_tx_sim_errors_total")
	mutexBusy              = metrics.NewCounter("filler_mutex_busy_total")
	evictedPendingTxSigs   = metrics.NewCounter("filler_evicted_pending_tx_sigs_total")
	confirmLoopRateLimited = metrics.NewCounter("filler_pending_tx_sigs_loop_rate_limited_total")
	bundlesSent            = metrics.NewCounter("filler_jito_bundles_sent_total")
	bundlesAccepted        = metrics.NewCounter("filler_jito_bundles_accepted_total")

	pendingTxSigsSize = metrics.NewCounter("filler_pending_tx_sigs_to_confirm_size")
	lastTryFillTimeMs = metrics.NewCounter("filler_last_try_fill_time_ms")
)

func IncAttemptedFills(n int) {
	attemptedFills.Add(n)
}

func IncAttemptedTriggers(n int) {
	attemptedTriggers.Add(n)
}

func IncAttemptedSettlePnl() {
	attemptedSettlePnl.Inc()
}

func IncSentTxs() {
	sentTxs.Inc()
}

func IncLandedTxs() {
	landedTxs.Inc()
}

func IncExpiredTxs() {
	expiredTxs.Inc()
}

func IncTxSimErrors() {
	txSimErrors.Inc()
}

func IncMutexBusy() {
	mutexBusy.Inc()
}

func IncEvictedPendingTxSigs() {
	evictedPendingTxSigs.Inc()
}

func IncConfirmLoopRateLimited() {
	confirmLoopRateLimited.Inc()
}

func IncBundlesSent() {
	bundlesSent.Inc()
}

func IncBundlesAccepted() {
	bundlesAccepted.Inc()
}

func SetPendingTxSigsSize(size int) {
	pendingTxSigsSize.Set(uint64(size))
}

func SetLastTryFillTimeMs(ts int64) {
	lastTryFillTimeMs.Set(uint64(ts))
}

// Handler serves the process metrics in Prometheus exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}
