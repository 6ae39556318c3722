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
	capturesStartedTotal atomic.Uint64

	classifyVerifiedTotal  atomic.Uint64
	classifyRejectedTotal  atomic.Uint64
	classifyPendingTotal   atomic.Uint64
	classifyDiscardedTotal atomic.Uint64

	submitSucceededTotal     atomic.Uint64
	submitFailedTotal        atomic.Uint64
	submitNotConfiguredTotal atomic.Uint64

	intakeReceivedTotal atomic.Uint64
	intakeFailedTotal   atomic.Uint64

	notifySentTotal   atomic.Uint64
	notifyFailedTotal atomic.Uint64

	submitDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncCaptureStarted counts a photo entering ANALYZING.
func IncCaptureStarted() {
	capturesStartedTotal.Add(1)
}

// IncClassification counts an applied or discarded classifier outcome.
// Outcome is one of verified, rejected, pending, discarded.
func IncClassification(outcome string) {
	switch outcome {
	case "verified":
		classifyVerifiedTotal.Add(1)
	case "rejected":
		classifyRejectedTotal.Add(1)
	case "pending":
		classifyPendingTotal.Add(1)
	case "discarded":
		classifyDiscardedTotal.Add(1)
	}
}

// IncSubmit counts a submit attempt by outcome: succeeded, failed, not_configured.
func IncSubmit(outcome string) {
	switch outcome {
	case "succeeded":
		submitSucceededTotal.Add(1)
	case "failed":
		submitFailedTotal.Add(1)
	case "not_configured":
		submitNotConfiguredTotal.Add(1)
	}
}

// IncIntakeReceived increments the received submissions counter.
func IncIntakeReceived() {
	intakeReceivedTotal.Add(1)
}

// IncIntakeFailed increments the failed submissions counter.
func IncIntakeFailed() {
	intakeFailedTotal.Add(1)
}

// IncNotifySent increments the delivered notifications counter.
func IncNotifySent() {
	notifySentTotal.Add(1)
}

// IncNotifyFailed increments the failed notifications counter.
func IncNotifyFailed() {
	notifyFailedTotal.Add(1)
}

// ObserveSubmitDurationMs records a submit duration in milliseconds.
func ObserveSubmitDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	submitDuration.Observe(value)
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
	writeCounter(&buf, "upload_captures_started_total", "Photos captured and sent for analysis", capturesStartedTotal.Load())
	writeLabeledCounter(&buf, "upload_classifications_total", "Classifier outcomes", "outcome", []labeled{
		{"verified", classifyVerifiedTotal.Load()},
		{"rejected", classifyRejectedTotal.Load()},
		{"pending", classifyPendingTotal.Load()},
		{"discarded", classifyDiscardedTotal.Load()},
	})
	writeLabeledCounter(&buf, "upload_submissions_total", "Submit attempts", "outcome", []labeled{
		{"succeeded", submitSucceededTotal.Load()},
		{"failed", submitFailedTotal.Load()},
		{"not_configured", submitNotConfiguredTotal.Load()},
	})
	writeCounter(&buf, "intake_received_total", "Submissions stored by the intake endpoint", intakeReceivedTotal.Load())
	writeCounter(&buf, "intake_failed_total", "Submissions the intake endpoint rejected", intakeFailedTotal.Load())
	writeCounter(&buf, "notify_sent_total", "Notifications delivered", notifySentTotal.Load())
	writeCounter(&buf, "notify_failed_total", "Notifications that failed to deliver", notifyFailedTotal.Load())
	writeHistogram(&buf, "upload_submit_duration_ms", "Submit duration in milliseconds", submitDuration.Snapshot())
	return buf.String()
}

type labeled struct {
	value string
	count uint64
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

// Observe records value in the first bucket whose bound covers it; counts are
// accumulated at render time.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values []labeled) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, v := range values {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, v.value, v.count)
	}
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

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
