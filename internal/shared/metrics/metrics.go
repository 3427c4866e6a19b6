package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	matchesScoredTotal    atomic.Uint64
	matchesDecidedTotal   atomic.Uint64
	applicationsSentTotal atomic.Uint64
	dispatchFailedTotal   atomic.Uint64
	throttleDeniedTotal   atomic.Uint64
	recalibrationsTotal   atomic.Uint64
	rateLimitedTotal      atomic.Uint64

	dispatchJobsReceivedTotal      atomic.Uint64
	dispatchJobsCompletedTotal     atomic.Uint64
	dispatchJobsFailedTotal        atomic.Uint64
	dispatchJobsUnrecoverableTotal atomic.Uint64

	scoringBatchDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncMatchesScored increments the scored-matches counter.
func IncMatchesScored() {
	matchesScoredTotal.Add(1)
}

// IncMatchesDecided increments the decided-matches counter.
func IncMatchesDecided() {
	matchesDecidedTotal.Add(1)
}

// IncApplicationsSent increments the sent-applications counter.
func IncApplicationsSent() {
	applicationsSentTotal.Add(1)
}

// IncDispatchFailures increments the failed-send-attempts counter.
func IncDispatchFailures() {
	dispatchFailedTotal.Add(1)
}

// IncThrottleDenials increments the throttle-denials counter.
func IncThrottleDenials() {
	throttleDeniedTotal.Add(1)
}

// IncRecalibrations increments the applied-recalibrations counter.
func IncRecalibrations() {
	recalibrationsTotal.Add(1)
}

// IncRateLimited increments the rejected-HTTP-requests counter.
func IncRateLimited() {
	rateLimitedTotal.Add(1)
}

// IncDispatchJobsReceived increments the received-dispatch-tasks counter.
func IncDispatchJobsReceived() {
	dispatchJobsReceivedTotal.Add(1)
}

// IncDispatchJobsCompleted increments the completed-dispatch-tasks counter.
func IncDispatchJobsCompleted() {
	dispatchJobsCompletedTotal.Add(1)
}

// IncDispatchJobsFailed increments the failed-dispatch-tasks counter.
func IncDispatchJobsFailed() {
	dispatchJobsFailedTotal.Add(1)
}

// IncDispatchJobsDeletedUnrecoverable increments the counter for malformed
// tasks dropped from the queue.
func IncDispatchJobsDeletedUnrecoverable() {
	dispatchJobsUnrecoverableTotal.Add(1)
}

// ObserveScoringBatchMs records a scoring batch duration in milliseconds.
func ObserveScoringBatchMs(value float64) {
	if value < 0 {
		value = 0
	}
	scoringBatchDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "matches_scored_total", "Total match candidates scored and stored", matchesScoredTotal.Load())
	writeCounter(&buf, "matches_decided_total", "Total match review decisions", matchesDecidedTotal.Load())
	writeCounter(&buf, "applications_sent_total", "Total applications delivered", applicationsSentTotal.Load())
	writeCounter(&buf, "dispatch_failed_total", "Total failed send attempts", dispatchFailedTotal.Load())
	writeCounter(&buf, "throttle_denied_total", "Total sends deferred by throttle", throttleDeniedTotal.Load())
	writeCounter(&buf, "recalibrations_total", "Total applied weight recalibrations", recalibrationsTotal.Load())
	writeCounter(&buf, "rate_limited_total", "Total HTTP requests rejected by the rate limiter", rateLimitedTotal.Load())
	writeCounter(&buf, "dispatch_jobs_received_total", "Total dispatch tasks received from the queue", dispatchJobsReceivedTotal.Load())
	writeCounter(&buf, "dispatch_jobs_completed_total", "Total dispatch tasks completed", dispatchJobsCompletedTotal.Load())
	writeCounter(&buf, "dispatch_jobs_failed_total", "Total dispatch tasks failed", dispatchJobsFailedTotal.Load())
	writeCounter(&buf, "dispatch_jobs_unrecoverable_total", "Total malformed dispatch tasks dropped", dispatchJobsUnrecoverableTotal.Load())
	writeHistogram(&buf, "scoring_batch_duration_ms", "Scoring batch duration in milliseconds", scoringBatchDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts holds per-bucket tallies; writeHistogram produces the
	// cumulative le series.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
