// Package diagnostics implements C13: the Diagnostic Agent. It runs
// three independent checks — content drift (via internal/fingerprint),
// confidence (caller-supplied self-assessment), and loop-limits (via
// types.OperationMetrics) — and aggregates them into a review. It does no
// import or dependency analysis. Grounded directly on spec §4.13/§5 for the
// three checks, which have no teacher or Python equivalent.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/standardbeagle/contextforge/internal/fingerprint"
	"github.com/standardbeagle/contextforge/internal/types"
)

// Thresholds configures the Diagnostic Agent's check limits.
type Thresholds struct {
	MaxToolCalls      int
	MaxRevisions      int
	MaxLoopIterations int
	MinConfidence     float64
}

// DefaultThresholds mirrors spec §5's suggested resource ceilings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxToolCalls:      200,
		MaxRevisions:      20,
		MaxLoopIterations: 50,
		MinConfidence:     0.5,
	}
}

// Agent runs diagnostic checks and keeps a bounded history of results.
type Agent struct {
	thresholds Thresholds
	store      *fingerprint.Store
	history    []types.DiagnosticResult
	maxHistory int
}

// New constructs an Agent backed by store for drift checks.
func New(thresholds Thresholds, store *fingerprint.Store, maxHistory int) *Agent {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Agent{thresholds: thresholds, store: store, maxHistory: maxHistory}
}

func (a *Agent) record(r types.DiagnosticResult) types.DiagnosticResult {
	a.history = append(a.history, r)
	if len(a.history) > a.maxHistory {
		a.history = a.history[len(a.history)-a.maxHistory:]
	}
	return r
}

// CheckDrift reports whether path's tracked fingerprint still matches
// its current on-disk content.
func (a *Agent) CheckDrift(path string) types.DiagnosticResult {
	status, _, _, err := a.store.CheckDrift(path)
	now := time.Now()
	if err != nil {
		return a.record(types.DiagnosticResult{
			Passed: false, Severity: types.SeverityError,
			Message: fmt.Sprintf("drift check failed for %s: %v", path, err), Timestamp: now,
		})
	}
	switch status {
	case types.NoDrift:
		return a.record(types.DiagnosticResult{Passed: true, Severity: types.SeverityInfo, Message: fmt.Sprintf("%s unchanged", path), Timestamp: now})
	case types.Drifted:
		return a.record(types.DiagnosticResult{
			Passed: false, Severity: types.SeverityWarning,
			Message: fmt.Sprintf("%s has drifted from its tracked fingerprint", path), Timestamp: now,
		})
	default:
		return a.record(types.DiagnosticResult{
			Passed: false, Severity: types.SeverityWarning,
			Message: fmt.Sprintf("%s is not tracked", path), Timestamp: now,
		})
	}
}

// CheckConfidence evaluates a caller-supplied self-assessment score
// (e.g. from an agent's own uncertainty estimate) against the configured
// minimum.
func (a *Agent) CheckConfidence(confidence float64, context string) types.DiagnosticResult {
	now := time.Now()
	if confidence < a.thresholds.MinConfidence {
		return a.record(types.DiagnosticResult{
			Passed: false, Severity: types.SeverityWarning,
			Message: fmt.Sprintf("confidence %.2f below threshold %.2f for %s", confidence, a.thresholds.MinConfidence, context),
			Details: map[string]any{"confidence": confidence, "context": context},
			Timestamp: now,
		})
	}
	return a.record(types.DiagnosticResult{
		Passed: true, Severity: types.SeverityInfo,
		Message: fmt.Sprintf("confidence %.2f acceptable for %s", confidence, context), Timestamp: now,
	})
}

// CheckLoopLimits flags sessions approaching or exceeding configured
// resource ceilings.
func (a *Agent) CheckLoopLimits(metrics types.OperationMetrics) types.DiagnosticResult {
	now := time.Now()
	var violations []string
	if metrics.ToolCalls > a.thresholds.MaxToolCalls {
		violations = append(violations, fmt.Sprintf("tool_calls %d exceeds %d", metrics.ToolCalls, a.thresholds.MaxToolCalls))
	}
	if metrics.Revisions > a.thresholds.MaxRevisions {
		violations = append(violations, fmt.Sprintf("revisions %d exceeds %d", metrics.Revisions, a.thresholds.MaxRevisions))
	}
	if metrics.LoopIterations > a.thresholds.MaxLoopIterations {
		violations = append(violations, fmt.Sprintf("loop_iterations %d exceeds %d", metrics.LoopIterations, a.thresholds.MaxLoopIterations))
	}

	if len(violations) == 0 {
		return a.record(types.DiagnosticResult{Passed: true, Severity: types.SeverityInfo, Message: "within resource limits", Timestamp: now})
	}

	severity := types.SeverityWarning
	if metrics.LoopIterations > a.thresholds.MaxLoopIterations*2 {
		severity = types.SeverityCritical
	}
	return a.record(types.DiagnosticResult{
		Passed: false, Severity: severity,
		Message: fmt.Sprintf("resource limits exceeded: %v", violations),
		Details: map[string]any{"violations": violations},
		Timestamp: now,
	})
}

// Review runs all three checks and aggregates their results.
type Review struct {
	Drift      types.DiagnosticResult
	Confidence types.DiagnosticResult
	LoopLimits types.DiagnosticResult
}

// RunReview performs a full diagnostic pass.
func (a *Agent) RunReview(path string, confidence float64, context string, metrics types.OperationMetrics) Review {
	return Review{
		Drift:      a.CheckDrift(path),
		Confidence: a.CheckConfidence(confidence, context),
		LoopLimits: a.CheckLoopLimits(metrics),
	}
}

// HasCriticalIssues reports whether any check in the review failed at
// error severity or above.
func (r Review) HasCriticalIssues() bool {
	for _, check := range []types.DiagnosticResult{r.Drift, r.Confidence, r.LoopLimits} {
		if !check.Passed && (check.Severity == types.SeverityError || check.Severity == types.SeverityCritical) {
			return true
		}
	}
	return false
}

// History returns the bounded history of past diagnostic results, oldest first.
func (a *Agent) History() []types.DiagnosticResult {
	out := make([]types.DiagnosticResult, len(a.history))
	copy(out, a.history)
	return out
}
