package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runsStartedTotal       atomic.Uint64
	runsCompletedTotal     atomic.Uint64
	runsFailedTotal        atomic.Uint64
	promptExecutionsTotal  atomic.Uint64
	promptExecutionsFailed atomic.Uint64
	readinessJobsStarted   atomic.Uint64
	readinessJobsCompleted atomic.Uint64
	readinessJobsFailed    atomic.Uint64
	scheduledJobsReceived  atomic.Uint64

	stepDuration      = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	readinessDuration = newHistogram([]float64{1000, 2000, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncRunStarted increments the started-runs counter.
func IncRunStarted() { runsStartedTotal.Add(1) }

// IncRunCompleted increments the completed-runs counter.
func IncRunCompleted() { runsCompletedTotal.Add(1) }

// IncRunFailed increments the failed-runs counter.
func IncRunFailed() { runsFailedTotal.Add(1) }

// IncPromptExecuted increments the executed-prompts counter.
func IncPromptExecuted() { promptExecutionsTotal.Add(1) }

// IncPromptExecutionFailed increments the failed-prompt-executions counter.
func IncPromptExecutionFailed() { promptExecutionsFailed.Add(1) }

// IncReadinessJobStarted increments the started readiness job counter.
func IncReadinessJobStarted() { readinessJobsStarted.Add(1) }

// IncReadinessJobCompleted increments the completed readiness job counter.
func IncReadinessJobCompleted() { readinessJobsCompleted.Add(1) }

// IncReadinessJobFailed increments the failed readiness job counter.
func IncReadinessJobFailed() { readinessJobsFailed.Add(1) }

// IncScheduledJobsReceived increments the received scheduled-job counter.
func IncScheduledJobsReceived() { scheduledJobsReceived.Add(1) }

// ObserveStepDurationMs records a workflow step duration in milliseconds.
func ObserveStepDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	stepDuration.Observe(value)
}

// ObserveReadinessDurationMs records a readiness job duration in milliseconds.
func ObserveReadinessDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	readinessDuration.Observe(value)
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
	writeCounter(&buf, "runs_started_total", "Total analysis runs started", runsStartedTotal.Load())
	writeCounter(&buf, "runs_completed_total", "Total analysis runs completed", runsCompletedTotal.Load())
	writeCounter(&buf, "runs_failed_total", "Total analysis runs failed", runsFailedTotal.Load())
	writeCounter(&buf, "prompt_executions_total", "Total prompt executions", promptExecutionsTotal.Load())
	writeCounter(&buf, "prompt_executions_failed_total", "Total failed prompt executions", promptExecutionsFailed.Load())
	writeCounter(&buf, "readiness_jobs_started_total", "Total readiness jobs started", readinessJobsStarted.Load())
	writeCounter(&buf, "readiness_jobs_completed_total", "Total readiness jobs completed", readinessJobsCompleted.Load())
	writeCounter(&buf, "readiness_jobs_failed_total", "Total readiness jobs failed", readinessJobsFailed.Load())
	writeCounter(&buf, "scheduled_jobs_received_total", "Total scheduled prompt jobs received", scheduledJobsReceived.Load())
	writeHistogram(&buf, "workflow_step_duration_ms", "Workflow step duration in milliseconds", stepDuration.Snapshot())
	writeHistogram(&buf, "readiness_job_duration_ms", "Readiness job duration in milliseconds", readinessDuration.Snapshot())
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
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
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
