package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

const (
	// ReminderLead is how far before the due date the reminder fires.
	ReminderLead = 24 * time.Hour

	// ReminderHorizon bounds how far ahead reminders are scheduled. Tasks due
	// further out get their reminder when they re-enter the horizon through an
	// update.
	ReminderHorizon = 7 * 24 * time.Hour

	// overdueDigestSchedule is the cron spec for the overdue scan.
	overdueDigestSchedule = "@every 24h"
)

// TaskSource is the slice of the task store the dispatcher reads from.
type TaskSource interface {
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error)
	ListOverdueGrouped(ctx context.Context, now time.Time) ([]store.OverdueGroup, error)
}

// UserSource resolves task owners for reminder emails.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// DispatcherConfig holds configuration for the notification dispatcher.
type DispatcherConfig struct {
	// WorkerCount determines how many concurrent workers send mail.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory send queue.
	QueueSize int
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// job is one queued send. The name only feeds logging.
type job struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher owns all outbound notifications: welcome and password-reset
// mail, due-date reminders, and the periodic overdue digest.
//
// Sends are best-effort. A full queue or a failed send is logged and
// dropped; no notification outcome ever reaches an API response. The one
// exception is SendPasswordReset, which reports its error synchronously so
// the caller can roll the persisted token back.
//
// Construction does no work. Nothing runs until Start, and Stop tears down
// workers, timers, and the cron scanner.
type Dispatcher struct {
	mailer Mailer
	tasks  TaskSource
	users  UserSource
	logger *slog.Logger

	queue  chan job
	config DispatcherConfig

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	cron       *cron.Cron

	mu        sync.Mutex
	reminders map[uuid.UUID]*time.Timer
	started   bool

	reminderLead    time.Duration
	reminderHorizon time.Duration

	timeFunc func() time.Time
}

// NewDispatcher creates a dispatcher. Call Start before submitting work.
func NewDispatcher(mailer Mailer, tasks TaskSource, users UserSource, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if mailer == nil {
		panic("mailer cannot be nil")
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultDispatcherConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		mailer:          mailer,
		tasks:           tasks,
		users:           users,
		logger:          logger.With(slog.String("component", "notify")),
		queue:           make(chan job, config.QueueSize),
		config:          config,
		ctx:             ctx,
		cancelFunc:      cancel,
		cron:            cron.New(),
		reminders:       make(map[uuid.UUID]*time.Timer),
		reminderLead:    ReminderLead,
		reminderHorizon: ReminderHorizon,
		timeFunc:        time.Now,
	}
}

// Start launches the worker pool and the overdue digest scanner.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("dispatcher already started")
	}

	if _, err := d.cron.AddFunc(overdueDigestSchedule, d.runOverdueDigest); err != nil {
		return fmt.Errorf("failed to schedule overdue digest: %w", err)
	}

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.cron.Start()
	d.started = true

	d.logger.Info("notification dispatcher started",
		slog.Int("workers", d.config.WorkerCount),
		slog.Int("queue_size", d.config.QueueSize))
	return nil
}

// Stop cancels pending reminders, stops the cron scanner, and waits for the
// workers to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	for id, timer := range d.reminders {
		timer.Stop()
		delete(d.reminders, id)
	}
	d.mu.Unlock()

	d.cron.Stop()
	d.cancelFunc()
	d.wg.Wait()

	d.logger.Info("notification dispatcher stopped")
}

// SendWelcome queues a welcome email for a freshly registered user.
func (d *Dispatcher) SendWelcome(user *domain.User) {
	email := user.Email
	name := displayName(user)

	d.enqueue(job{
		name: "welcome",
		run: func(ctx context.Context) error {
			return d.mailer.Send(ctx, Message{
				To:      email,
				Subject: "Welcome to TaskNest",
				Body: fmt.Sprintf("Hi %s,\n\nYour account is ready. "+
					"Create your first task and we'll keep track of the rest.\n", name),
			})
		},
	})
}

// SendPasswordReset delivers the reset email synchronously. The plaintext
// token appears only here; the store holds its digest. A non-nil return means
// nothing was delivered and the caller must roll the stored token back.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, user *domain.User, plaintextToken string) error {
	return d.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Password reset request",
		Body: fmt.Sprintf("Hi %s,\n\nUse this token to reset your password within the next hour:\n\n%s\n\n"+
			"If you did not request a reset, ignore this message.\n", displayName(user), plaintextToken),
	})
}

// ScheduleReminder arms a reminder timer for the task, replacing any timer
// already armed for it. No timer is armed when the task has no due date, the
// reminder instant has already passed, or the due date lies beyond the
// scheduling horizon.
func (d *Dispatcher) ScheduleReminder(task *domain.Task) {
	d.CancelReminder(task.ID)

	if task.DueDate == nil || task.IsCompleted {
		return
	}

	now := d.timeFunc()
	due := *task.DueDate
	reminderAt := due.Add(-d.reminderLead)

	if !reminderAt.After(now) {
		d.logger.Debug("reminder window already passed, skipping",
			slog.String("task_id", task.ID.String()),
			slog.Time("due_date", due))
		return
	}
	if due.Sub(now) > d.reminderHorizon {
		d.logger.Debug("due date beyond reminder horizon, skipping",
			slog.String("task_id", task.ID.String()),
			slog.Time("due_date", due))
		return
	}

	taskID := task.ID
	ownerID := task.UserID
	timer := time.AfterFunc(reminderAt.Sub(now), func() {
		d.mu.Lock()
		delete(d.reminders, taskID)
		d.mu.Unlock()

		d.enqueue(job{
			name: "reminder",
			run: func(ctx context.Context) error {
				return d.sendReminder(ctx, ownerID, taskID)
			},
		})
	})

	d.mu.Lock()
	d.reminders[taskID] = timer
	d.mu.Unlock()

	d.logger.Debug("reminder scheduled",
		slog.String("task_id", taskID.String()),
		slog.Time("fires_at", reminderAt))
}

// CancelReminder disarms any pending reminder for the task. It is a no-op
// when none is armed.
func (d *Dispatcher) CancelReminder(taskID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.reminders[taskID]; ok {
		timer.Stop()
		delete(d.reminders, taskID)
	}
}

// PendingReminders reports how many reminder timers are armed.
func (d *Dispatcher) PendingReminders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reminders)
}

// sendReminder re-reads the task when the timer fires. Tasks that were
// completed, deleted, or rescheduled since arming produce no mail.
func (d *Dispatcher) sendReminder(ctx context.Context, ownerID, taskID uuid.UUID) error {
	task, err := d.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("reload task for reminder: %w", err)
	}
	if task.IsCompleted || task.DueDate == nil {
		return nil
	}
	if task.DueDate.Add(-d.reminderLead).After(d.timeFunc()) {
		// Rescheduled further out since the timer was armed.
		return nil
	}

	user, err := d.users.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("resolve reminder recipient: %w", err)
	}

	return d.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Reminder: %q is due soon", task.Title),
		Body: fmt.Sprintf("Hi %s,\n\n%q is due at %s.\n",
			displayName(user), task.Title, task.DueDate.UTC().Format(time.RFC1123)),
	})
}

// runOverdueDigest scans for overdue tasks and queues one digest email per
// owner.
func (d *Dispatcher) runOverdueDigest() {
	now := d.timeFunc()
	groups, err := d.tasks.ListOverdueGrouped(d.ctx, now)
	if err != nil {
		d.logger.Error("overdue digest scan failed",
			slog.String("error", err.Error()))
		return
	}

	d.logger.Info("overdue digest scan complete",
		slog.Int("owners", len(groups)))

	for _, group := range groups {
		msg := overdueDigestMessage(group)
		d.enqueue(job{
			name: "overdue_digest",
			run: func(ctx context.Context) error {
				return d.mailer.Send(ctx, msg)
			},
		})
	}
}

func overdueDigestMessage(group store.OverdueGroup) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYou have %d overdue task(s):\n\n", displayName(group.User), len(group.Tasks))
	for _, task := range group.Tasks {
		due := "no due date"
		if task.DueDate != nil {
			due = task.DueDate.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "  - %s (due %s, %s)\n", task.Title, due, task.Priority)
	}
	b.WriteString("\n")

	return Message{
		To:      group.User.Email,
		Subject: fmt.Sprintf("You have %d overdue task(s)", len(group.Tasks)),
		Body:    b.String(),
	}
}

// enqueue hands a job to the workers without ever blocking the caller.
func (d *Dispatcher) enqueue(j job) {
	select {
	case d.queue <- j:
	default:
		d.logger.Warn("notification queue full, dropping",
			slog.String("job", j.name))
	}
}

// worker drains the send queue until shutdown.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	log := d.logger.With(slog.Int("worker_id", id))
	log.Debug("starting notification worker")

	for {
		select {
		case <-d.ctx.Done():
			log.Debug("stopping notification worker")
			return

		case j, ok := <-d.queue:
			if !ok {
				return
			}
			if err := j.run(d.ctx); err != nil {
				log.Error("notification send failed",
					slog.String("job", j.name),
					slog.String("error", err.Error()))
			}
		}
	}
}

func displayName(user *domain.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}
