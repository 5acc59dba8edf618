package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/notify"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
)

// LeaseName prefixes the overdue sweep lease. Each day's run holds its own
// key, see RunLeaseName.
const LeaseName = "overdue_sweep"

// DefaultLeaseTTL is how long a finished run keeps its lease. It must outlast
// the spread between replicas firing the same daily schedule.
const DefaultLeaseTTL = 12 * time.Hour

// RunLeaseName returns the lease key for the sweep of the given UTC day.
func RunLeaseName(day time.Time) string {
	return LeaseName + ":" + day.UTC().Format(time.DateOnly)
}

// OverdueLister returns the overdue tasks as of now.
type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time) ([]domain.OverdueTask, error)
}

// RecipientError records a summary that could not be delivered.
type RecipientError struct {
	UserID int64
	Email  string
	Err    error
}

func (e RecipientError) Error() string {
	return fmt.Sprintf("user %d (%s): %v", e.UserID, e.Email, e.Err)
}

func (e RecipientError) Unwrap() error {
	return e.Err
}

// Result summarizes one sweep run.
type Result struct {
	// Skipped is set when another run held the lease.
	Skipped    bool
	Tasks      int
	Recipients int
	Sent       int
	Failures   []RecipientError
}

// Sweeper sends the daily overdue summaries.
type Sweeper struct {
	tasks    OverdueLister
	channel  notify.Channel
	lease    Lease
	leaseTTL time.Duration
	composer *notify.Composer
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLeaseTTL overrides DefaultLeaseTTL.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Sweeper) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	tasks OverdueLister,
	channel notify.Channel,
	lease Lease,
	logger *slog.Logger,
	opts ...Option,
) *Sweeper {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if channel == nil {
		panic("channel cannot be nil")
	}
	if lease == nil {
		lease = NewLocalLease()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		tasks:    tasks,
		channel:  channel,
		lease:    lease,
		leaseTTL: DefaultLeaseTTL,
		composer: notify.NewComposer(),
		now:      time.Now,
		logger:   logger.With(slog.String("component", "overdue_sweep")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. A failure to deliver to one recipient is recorded
// in the result and does not stop the others; only lease and query failures
// are returned as errors.
//
// The lease is keyed by the run's UTC date and is left to expire once
// summaries have gone out, so a replica firing later the same day skips.
// It is released only when listing fails, which lets a retry run.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now().UTC()
	leaseName := RunLeaseName(now)

	release, ok, err := s.lease.TryAcquire(ctx, leaseName, s.leaseTTL)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		log.Info("overdue sweep already ran or is running elsewhere, skipping",
			slog.String("lease", leaseName))
		return Result{Skipped: true}, nil
	}

	overdue, err := s.tasks.ListOverdue(ctx, now)
	if err != nil {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("failed to release sweep lease", slog.String("error", rerr.Error()))
		}
		return Result{}, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	groups := groupByAssignee(overdue)
	result := Result{Tasks: len(overdue), Recipients: len(groups)}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := s.send(ctx, g); err != nil {
			rerr := RecipientError{UserID: g.userID, Email: g.email, Err: err}
			result.Failures = append(result.Failures, rerr)
			log.Error("failed to send overdue summary",
				slog.Int64("user_id", g.userID),
				slog.Int("tasks", len(g.tasks)),
				slog.String("error", err.Error()))
			continue
		}
		result.Sent++
	}

	log.Info("overdue sweep finished",
		slog.Time("as_of", now),
		slog.Int("tasks", result.Tasks),
		slog.Int("recipients", result.Recipients),
		slog.Int("sent", result.Sent),
		slog.Int("failed", len(result.Failures)))
	return result, nil
}

func (s *Sweeper) send(ctx context.Context, g recipientGroup) error {
	msg, err := s.composer.OverdueSummary(g.tasks)
	if err != nil {
		return err
	}
	return s.channel.Send(ctx, g.email, msg.Subject, msg.HTML)
}

type recipientGroup struct {
	userID int64
	email  string
	tasks  []domain.OverdueTask
}

// groupByAssignee keeps first-seen order of assignees and of tasks within each.
func groupByAssignee(tasks []domain.OverdueTask) []recipientGroup {
	index := make(map[int64]int)
	var groups []recipientGroup
	for _, t := range tasks {
		i, ok := index[t.AssigneeID]
		if !ok {
			i = len(groups)
			index[t.AssigneeID] = i
			groups = append(groups, recipientGroup{userID: t.AssigneeID, email: t.AssigneeEmail})
		}
		groups[i].tasks = append(groups[i].tasks, t)
	}
	return groups
}
