// Package diagnostics runs the system self-test: a fixed sequence of checks
// against the collaborators the service depends on.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrDegraded marks a check error as a warning rather than a failure.
var ErrDegraded = errors.New("degraded")

// Warnf builds an error that the runner reports as a warning.
func Warnf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegraded, fmt.Sprintf(format, args...))
}

// Status is the outcome of a check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

func (s Status) rank() int {
	switch s {
	case StatusWarn:
		return 1
	case StatusFail:
		return 2
	}
	return 0
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Check is one named probe. Run returns a human readable message on success.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Result is the outcome of a single check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"-"`
	Message  string        `json:"message"`
}

// MarshalJSON renders the duration in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"duration_ms"`
	}{alias(r), r.Duration.Milliseconds()})
}

// Report is the outcome of a full run. Status is the worst check status.
type Report struct {
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Checks    []Result  `json:"checks"`
}

// Runner executes checks sequentially and remembers the last report.
type Runner struct {
	checks  []Check
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu   sync.RWMutex
	last *Report
}

// Option customises a Runner.
type Option func(*Runner)

// WithTimeout bounds each check. The default is five seconds.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics publishes check results.
func WithMetrics(m *Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner builds a runner over checks, run in the given order.
func NewRunner(logger *slog.Logger, checks []Check, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{checks: checks, timeout: 5 * time.Second, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every check. A failing check does not stop the run.
func (r *Runner) Run(ctx context.Context) Report {
	rep := Report{Status: StatusPass, StartedAt: r.now().UTC(), Checks: make([]Result, 0, len(r.checks))}
	for _, c := range r.checks {
		res := r.runOne(ctx, c)
		rep.Checks = append(rep.Checks, res)
		rep.Status = rep.Status.Worse(res.Status)
		r.metrics.observe(res)
		if res.Status != StatusPass {
			r.logger.Warn("diagnostic check", slog.String("check", res.Name), slog.String("status", string(res.Status)), slog.String("message", res.Message))
		}
	}
	r.mu.Lock()
	r.last = &rep
	r.mu.Unlock()
	r.logger.Info("diagnostics run", slog.String("status", string(rep.Status)), slog.Int("checks", len(rep.Checks)))
	return rep
}

// Last returns the most recent report, if any.
func (r *Runner) Last() (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Report{}, false
	}
	return *r.last, true
}

func (r *Runner) runOne(ctx context.Context, c Check) (res Result) {
	res.Name = c.Name
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Status, res.Message = StatusFail, fmt.Sprintf("panic: %v", p)
		}
		res.Duration = time.Since(start)
	}()
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	msg, err := c.Run(cctx)
	switch {
	case err == nil:
		res.Status, res.Message = StatusPass, msg
	case errors.Is(err, ErrDegraded):
		res.Status, res.Message = StatusWarn, strings.TrimPrefix(err.Error(), ErrDegraded.Error()+": ")
	default:
		res.Status, res.Message = StatusFail, err.Error()
	}
	return res
}
