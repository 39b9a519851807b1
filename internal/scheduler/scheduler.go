package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/logger"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/notifier"
	"CryptoBoard/internal/projector"
	"CryptoBoard/internal/recorder"
	"CryptoBoard/internal/view"
)

// RetryPolicy bounds how often a refresh retries a transient fetch failure.
type RetryPolicy struct {
	Attempts int
	Backoff  func(attempt int) time.Duration
}

// DefaultRetry makes at most 3 attempts, waiting 1s then 2s.
var DefaultRetry = RetryPolicy{
	Attempts: 3,
	Backoff:  func(attempt int) time.Duration { return time.Duration(1<<uint(attempt)) * time.Second },
}

// Result is the outcome of one refresh.
type Result struct {
	Board    view.Board
	Err      error
	Attempts int
	At       time.Time
}

// Scheduler refreshes the board on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Cache     *collector.CachedFetcher
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
	Out       io.Writer
	Unit      model.Unit
	View      view.Options
	Retry     RetryPolicy
	Ctx       context.Context

	mu   sync.Mutex
	last Result
}

// NewScheduler creates a new Scheduler. cache may be nil when the
// collector fetches directly; rec defaults to a no-op recorder.
func NewScheduler(ctx context.Context, col *collector.Collector, cache *collector.CachedFetcher, rec recorder.Recorder, unit model.Unit, opts view.Options) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Cache:     cache,
		Recorder:  rec,
		Unit:      unit,
		View:      opts,
		Retry:     DefaultRetry,
		Ctx:       ctx,
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.GetLogger().WithComponent("scheduler").Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.GetLogger().WithComponent("scheduler").Info("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	s.RunNow(s.Ctx)
}

// RunNow performs one refresh: drop the cached listing, collect with
// retry, record the outcome, then print and push the board.
func (s *Scheduler) RunNow(ctx context.Context) Result {
	return s.run(ctx, true)
}

func (s *Scheduler) run(ctx context.Context, push bool) Result {
	log := logger.GetLogger().WithComponent("scheduler").WithFields(logger.Fields{"unit": string(s.Unit)})
	log.Info("running refresh")

	if s.Cache != nil {
		s.Cache.Invalidate()
	}
	table, attempts, err := s.collectWithRetry(ctx)

	res := Result{Attempts: attempts, At: time.Now()}
	if err != nil {
		res.Err = err
		res.Board = s.View.Apply(model.Empty(s.Unit))
		log.WithError(err).WithFields(logger.Fields{"attempts": attempts}).Error("refresh failed")
		s.recordFailure(res)
	} else {
		res.Board = s.View.Apply(table)
		if err := s.Recorder.RecordSnapshot(recorder.NewSnapshot(table)); err != nil {
			log.WithError(err).Error("record snapshot failed")
		}
		log.WithFields(logger.Fields{"rows": table.Len(), "shown": res.Board.Table.Len(), "attempts": attempts}).Info("refresh done")
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.render(res)
	if push {
		s.push(ctx, res)
	}
	return res
}

// Last returns the most recent refresh result.
func (s *Scheduler) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) collectWithRetry(ctx context.Context) (model.InstrumentTable, int, error) {
	policy := s.Retry
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	log := logger.GetLogger().WithComponent("scheduler")

	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		table, err := s.Collector.Collect(ctx, s.Unit)
		if err == nil {
			return table, attempt + 1, nil
		}
		lastErr = err
		if !Retryable(err) || attempt == policy.Attempts-1 {
			return model.Empty(s.Unit), attempt + 1, err
		}
		backoff := time.Duration(0)
		if policy.Backoff != nil {
			backoff = policy.Backoff(attempt)
		}
		log.WithError(err).WithFields(logger.Fields{
			"attempt": attempt + 1,
			"of":      policy.Attempts,
			"backoff": backoff.String(),
		}).Warn("collect failed, retrying")
		select {
		case <-ctx.Done():
			return model.Empty(s.Unit), attempt + 1, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return model.Empty(s.Unit), policy.Attempts, lastErr
}

// Retryable reports whether a collect error may succeed on another attempt.
// Only transport failures are retried; a page or layout problem repeats.
func Retryable(err error) bool {
	return errors.Is(err, collector.ErrNetwork) || errors.Is(err, collector.ErrTimeout)
}

// FailureKind names the error class of a failed refresh.
func FailureKind(err error) string {
	if k, ok := collector.KindOf(err); ok {
		return k.String()
	}
	if errors.Is(err, projector.ErrSchemaMismatch) {
		return "SchemaMismatch"
	}
	return "Other"
}

func (s *Scheduler) recordFailure(res Result) {
	evt := &recorder.Failure{
		ID:       uuid.New(),
		Time:     res.At,
		Unit:     s.Unit,
		Kind:     FailureKind(res.Err),
		Attempts: res.Attempts,
		Message:  res.Err.Error(),
	}
	if err := s.Recorder.RecordFailure(evt); err != nil {
		logger.GetLogger().WithComponent("scheduler").WithError(err).Error("record failure failed")
	}
}

func (s *Scheduler) render(res Result) {
	if s.Out == nil {
		return
	}
	fmt.Fprint(s.Out, Render(res, s.View.Chart))
}

// Render is the plain-text board: the error banner on failure, then the
// table and, when a chart horizon is set, the chart.
func Render(res Result, chart model.Horizon) string {
	var b strings.Builder
	if res.Err != nil {
		b.WriteString(notifier.FormatError(res.Err))
	}
	b.WriteString(notifier.FormatTable(res.Board.Table))
	if chart != "" && res.Err == nil {
		b.WriteString("\n")
		b.WriteString(notifier.FormatChart(res.Board.Series, chart))
	}
	return b.String()
}

func (s *Scheduler) push(ctx context.Context, res Result) {
	if s.Notifier == nil {
		return
	}
	text := notifier.FormatBoard(res.Board.Table, res.Board.Series, s.View.Chart)
	if res.Err != nil {
		text = notifier.FormatErrorHTML(res.Err)
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		logger.GetLogger().WithComponent("scheduler").WithError(err).Error("send notification failed")
	}
}

// HandleCommand answers a chat command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	name, args := notifier.ParseCommand(command)
	switch name {
	case "/board", "/refresh":
		// The reply carries the board, so skip the push.
		res := s.run(ctx, false)
		if res.Err != nil {
			return notifier.FormatErrorHTML(res.Err)
		}
		return notifier.FormatBoard(res.Board.Table, res.Board.Series, s.View.Chart)
	case "/top":
		if len(args) != 1 {
			return "usage: /top N"
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return "usage: /top N"
		}
		last := s.Last()
		if last.Err != nil {
			return notifier.FormatErrorHTML(last.Err)
		}
		t, err := view.Top(last.Board.Table, n)
		if err != nil {
			return notifier.FormatErrorHTML(err)
		}
		return notifier.FormatBoard(t, nil, "")
	case "/chart":
		h := s.View.Chart
		if len(args) == 1 {
			parsed, err := model.ParseHorizon(args[0])
			if err != nil {
				return fmt.Sprintf("unknown horizon %q", args[0])
			}
			h = parsed
		}
		if h == "" {
			h = model.Horizon7d
		}
		last := s.Last()
		if last.Err != nil {
			return notifier.FormatErrorHTML(last.Err)
		}
		return "<pre>" + html.EscapeString(notifier.FormatChart(view.Chart(last.Board.Table, h), h)) + "</pre>"
	case "/symbols":
		return strings.Join(view.Symbols(s.Last().Board.Table), " ")
	default:
		return "commands:\n/board - refresh and show the board\n/top N - first N rows of the last board\n/chart [1h|24h|7d|30d|90d] - change chart\n/symbols - listed symbols"
	}
}
