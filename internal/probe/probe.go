// Package probe exercises a running recommendation service: every user is
// asked twice, and each answer is checked for length and idempotence.
package probe

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/inferd/pkg/logger"
)

// Defaults for Config.
const (
	DefaultTopN    = 10
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Users      []int64       // Users to probe
	TopN       int           // Expected maximum list length
	Workers    int           // Concurrent users in flight
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report path
}

// Status of one probed user.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

// Result is the outcome for one user.
type Result struct {
	User      int64    `json:"user"`
	Status    string   `json:"status"`
	Titles    []string `json:"titles,omitempty"`
	Identical bool     `json:"identical"`
	WithinN   bool     `json:"within_n"`
	LatencyMs float64  `json:"latency_ms"`
	Error     string   `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID     string        `json:"run_id"`
	BaseURL   string        `json:"base_url"`
	TopN      int           `json:"top_n"`
	Results   []Result      `json:"results"`
	OK        int           `json:"ok"`
	NotFound  int           `json:"not_found"`
	Failed    int           `json:"failed"`
	Violation int           `json:"violations"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// Passed reports whether no user failed or violated an invariant.
func (r *Report) Passed() bool {
	return r.Failed == 0 && r.Violation == 0
}

// Run probes every configured user and returns the report. A non-nil
// error means the run itself could not proceed; invariant violations are
// reported through Report.Passed.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Users) == 0 {
		return nil, ErrNoUsers
	}

	report := &Report{
		RunID:     uuid.NewString(),
		BaseURL:   cfg.BaseURL,
		TopN:      cfg.TopN,
		Results:   make([]Result, len(cfg.Users)),
		StartTime: time.Now(),
	}
	log := logger.Named("probe")
	log.Info(ctx, "starting probe",
		logger.String("runID", report.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", len(cfg.Users)),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, user := range cfg.Users {
		g.Go(func() error {
			report.Results[i] = probeUser(ctx, client, user, cfg.TopN)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		switch res.Status {
		case StatusOK:
			report.OK++
			if !res.Identical || !res.WithinN {
				report.Violation++
			}
		case StatusNotFound:
			report.NotFound++
		default:
			report.Failed++
		}
	}
	report.Duration = time.Since(report.StartTime)

	log.Info(ctx, "probe finished",
		logger.String("runID", report.RunID),
		logger.Int("ok", report.OK),
		logger.Int("notFound", report.NotFound),
		logger.Int("failed", report.Failed),
		logger.Int("violations", report.Violation),
	)

	if cfg.OutputFile != "" {
		if err := report.Save(cfg.OutputFile); err != nil {
			return report, err
		}
	}
	return report, nil
}

func probeUser(ctx context.Context, c *httpClient, user int64, topN int) Result {
	res := Result{User: user}
	start := time.Now()

	first, status, err := c.recommendations(ctx, user)
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	if status == statusNotFound {
		res.Status = StatusNotFound
		return res
	}

	second, status2, err := c.recommendations(ctx, user)
	if err != nil || status2 != statusOK {
		res.Status = StatusFailed
		res.Error = fmt.Sprintf("second request: status %d: %v", status2, err)
		return res
	}

	res.Status = StatusOK
	res.Titles = first
	res.WithinN = len(first) <= topN
	res.Identical = slices.Equal(first, second)
	return res
}
