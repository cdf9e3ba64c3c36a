package notify

import (
	"time"

	"github.com/robfig/cron/v3"

	appLog "calagent/internal/log"
	"calagent/internal/store"
)

// Service is the background reminder loop: on every cron tick it looks up
// the events dated today and mails one reminder per event. Unlike a bare
// goroutine-with-sleep, the service can be stopped; Stop waits for an
// in-flight pass to finish.
type Service struct {
	st     *store.Store
	mailer Mailer
	spec   string

	cron *cron.Cron

	// now is the clock used to derive "today"; swapped out in tests.
	now func() time.Time
}

// NewService builds a reminder service. spec is a 5-field cron expression,
// e.g. "0 0 * * *" for midnight.
func NewService(st *store.Store, mailer Mailer, spec string) *Service {
	return &Service{
		st:     st,
		mailer: mailer,
		spec:   spec,
		now:    time.Now,
	}
}

// Start registers the reminder job and starts the cron runner in its own
// goroutine. Returns an error only for an invalid cron spec.
func (s *Service) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, s.RunOnce); err != nil {
		return err
	}
	c.Start()
	s.cron = c

	appLog.Info("reminder service started", "schedule", s.spec)
	return nil
}

// Stop halts the scheduler and blocks until a running reminder pass has
// completed. Safe to call when Start never ran.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	appLog.Info("reminder service stopped")
}

// RunOnce performs a single reminder pass for the current calendar date.
// Each send is independent: a failure is logged and the remaining sends
// still run, in stored order.
func (s *Service) RunOnce() {
	today := s.now().Format("2006-01-02")
	events := s.st.EventsOn(today)

	appLog.Info("reminder check", "date", today, "event_count", len(events))

	for _, ev := range events {
		if err := s.mailer.Send(ev); err != nil {
			appLog.Error("failed to send reminder", err, "title", ev.Title)
			continue
		}
		appLog.Info("reminder sent", "title", ev.Title, "time", ev.Time)
	}
}
