package companies

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"brandscope-backend/internal/queue"
	"brandscope-backend/internal/shared/telemetry"
)

// Scheduler enqueues one execution message per company on a cron
// schedule. The worker process consumes them, so a slow LLM pass never
// blocks the next tick.
type Scheduler struct {
	Repo  Repo
	Queue queue.Client
	Spec  string

	cron *cron.Cron
}

func NewScheduler(repo Repo, q queue.Client, spec string) *Scheduler {
	if spec == "" {
		spec = "0 6 * * *"
	}
	return &Scheduler{Repo: repo, Queue: q, Spec: spec}
}

// Start registers the cron entry and begins ticking. Returns an error
// only for an invalid spec.
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	telemetry.Info("scheduler.started", map[string]any{"spec": s.Spec})
	return nil
}

// Stop halts the cron loop, waiting for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	companies, err := s.Repo.List(ctx, 200, 0)
	if err != nil {
		telemetry.Error("scheduler.list_companies", map[string]any{"error": err.Error()})
		return
	}

	var enqueued int
	for _, company := range companies {
		prompts, err := s.Repo.ListPrompts(ctx, company.ID, true)
		if err != nil || len(prompts) == 0 {
			continue
		}
		msg := queue.Message{
			CompanyID:  company.ID,
			RequestID:  uuid.NewString(),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Error("scheduler.enqueue", map[string]any{
				"company_id": company.ID,
				"error":      err.Error(),
			})
			continue
		}
		enqueued++
	}

	telemetry.Info("scheduler.tick", map[string]any{
		"companies": len(companies),
		"enqueued":  enqueued,
	})
}
