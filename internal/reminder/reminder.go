package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/hub"
)

type TaskLister interface {
	List(ctx context.Context) ([]task.Task, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Publisher interface {
	Publish(recipientID, eventType string, payload any) int
}

type Config struct {
	Interval time.Duration
	Window   time.Duration
}

// Scanner periodically looks for open tasks whose deadline falls inside the
// window and nudges assignees that have task reminders enabled. Delivery is
// live-only, like every other hub event; an offline assignee simply misses
// the nudge.
type Scanner struct {
	cfg       Config
	tasks     TaskLister
	users     UserGetter
	publisher Publisher
	log       *slog.Logger

	mu       sync.Mutex
	reminded map[string]struct{}
}

func New(cfg Config, tasks TaskLister, users UserGetter, publisher Publisher, log *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}

	return &Scanner{
		cfg:       cfg,
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		log:       log,
		reminded:  make(map[string]struct{}),
	}
}

func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scanner stopping")
			return

		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	tasks, err := s.tasks.List(ctx)

	if err != nil {
		s.log.Error("reminder scan failed", "err", err)
		return
	}

	now := time.Now().UTC()

	for _, t := range tasks {
		if !s.due(t, now) {
			continue
		}

		s.mu.Lock()
		_, seen := s.reminded[t.ID]
		if !seen {
			s.reminded[t.ID] = struct{}{}
		}
		s.mu.Unlock()

		if seen {
			continue
		}

		for _, assignee := range t.AssignedTo {
			if !s.wantsReminders(ctx, assignee) {
				continue
			}

			s.publisher.Publish(assignee, hub.EventTaskReminder, t)
		}

		s.log.Debug("reminder published", "task", t.ID, "deadline", t.Deadline)
	}
}

// due: open task, deadline set, and the deadline is within the window (or
// already past but the task was never finished).
func (s *Scanner) due(t task.Task, now time.Time) bool {
	if t.Deadline == nil {
		return false
	}

	if t.Status != task.StatusPending && t.Status != task.StatusRejected {
		return false
	}

	return t.Deadline.Before(now.Add(s.cfg.Window))
}

func (s *Scanner) wantsReminders(ctx context.Context, userID string) bool {
	u, err := s.users.GetByID(ctx, userID)

	if err != nil {
		return false
	}

	// unset settings mean the defaults, which have reminders on
	if u.Settings == nil || u.Settings.TaskReminders == nil {
		return true
	}

	return *u.Settings.TaskReminders
}
