// Package diagnostics implements the diagnostic recorder (spec §4.8):
// thread-safe attempt/success/rejection/data-quality counters and a
// periodic summarizer that derives operator-facing recommendations from
// simple heuristics over those counters.
package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/signalforge/scanner/internal/model"
)

// minAttemptsForRateCheck and lowSuccessRate gate the first heuristic
// (spec §4.8): a strategy needs a meaningful sample before its success
// rate is judged.
const (
	minAttemptsForRateCheck = 10
	lowSuccessRate          = 0.05
	dominantRejectionShare  = 0.5
	noSuccessGrace          = time.Hour
)

// Counters is the thread-safe store every component calls into via
// RecordAttempt/RecordSuccess/RecordRejection/RecordDataQuality (spec
// §4.8). It lives in this package rather than model because it carries
// behavior (a mutex and summarization), not just data.
type Counters struct {
	mu sync.Mutex

	startedAt           time.Time
	lastSignalAt        time.Time
	attemptsByStrategy  map[string]int
	successesByStrategy map[string]int
	rejectionsByReason  map[string]int
	dataQualityByIssue  map[string]int
}

// New returns an empty Counters, with startedAt stamped from now.
func New(now time.Time) *Counters {
	return &Counters{
		startedAt:           now,
		attemptsByStrategy:  make(map[string]int),
		successesByStrategy: make(map[string]int),
		rejectionsByReason:  make(map[string]int),
		dataQualityByIssue:  make(map[string]int),
	}
}

// RecordAttempt counts one detector invocation for strategy, regardless
// of whether it fired a signal.
func (c *Counters) RecordAttempt(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attemptsByStrategy[strategy]++
}

// RecordSuccess counts one signal from strategy that survived the
// quality filter and was dispatched, stamping lastSignalAt.
func (c *Counters) RecordSuccess(strategy string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successesByStrategy[strategy]++
	if at.After(c.lastSignalAt) {
		c.lastSignalAt = at
	}
}

// RecordRejection counts one quality-filter rejection keyed by reason
// (e.g. "confluence", "confidence", "risk_reward", "duplicate").
func (c *Counters) RecordRejection(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectionsByReason[reason]++
}

// RecordDataQuality counts one data-quality issue (e.g.
// "insufficient_history", "data_stale", "gap_detected").
func (c *Counters) RecordDataQuality(issue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataQualityByIssue[issue]++
}

// Summarize produces a DiagnosticReport as of now, including the
// heuristic recommendations and a best-effort process resource snapshot.
func (c *Counters) Summarize(now time.Time) model.DiagnosticReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := model.DiagnosticReport{
		Runtime:             now.Sub(c.startedAt),
		LastSignalAt:        c.lastSignalAt,
		AttemptsByStrategy:  copyCounts(c.attemptsByStrategy),
		SuccessesByStrategy: copyCounts(c.successesByStrategy),
		RejectionsByReason:  copyCounts(c.rejectionsByReason),
		DataQualityByIssue:  copyCounts(c.dataQualityByIssue),
	}
	report.Recommendations = recommendations(report, now)

	if rss, ok := processRSS(); ok {
		report.ProcessRSSBytes = rss
	}
	report.Goroutines = runtime.NumGoroutine()

	return report
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// recommendations implements spec §4.8's three heuristics in order.
func recommendations(r model.DiagnosticReport, now time.Time) []string {
	var recs []string

	for strategy, attempts := range r.AttemptsByStrategy {
		if attempts < minAttemptsForRateCheck {
			continue
		}
		rate := float64(r.SuccessesByStrategy[strategy]) / float64(attempts)
		if rate < lowSuccessRate {
			recs = append(recs, fmt.Sprintf("consider relaxing thresholds for %s", strategy))
		}
	}

	totalRejections := 0
	for _, n := range r.RejectionsByReason {
		totalRejections += n
	}
	if totalRejections > 0 {
		for reason, n := range r.RejectionsByReason {
			if float64(n)/float64(totalRejections) >= dominantRejectionShare {
				recs = append(recs, fmt.Sprintf("filter %s is dominant; inspect threshold", reason))
			}
		}
	}

	if r.Runtime >= noSuccessGrace && r.LastSignalAt.IsZero() {
		recs = append(recs, "consider bypass mode for diagnosis")
	}

	return recs
}

// processRSS reads this process's resident set size via gopsutil. A
// failure to read it (sandboxed environment, unsupported platform) is
// not fatal to the report — the field is simply left zero.
func processRSS() (uint64, bool) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, false
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0, false
	}
	return info.RSS, true
}
