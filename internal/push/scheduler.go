package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
	"github.com/daybreakapp/daybreak/internal/store"
)

// CutoffHour is the local hour at or after which new reminders are refused.
// A reminder computed to land at 17:00 or later is silently dropped, not
// carried over to the next day.
const CutoffHour = 17

// AfterCutoff reports whether a send time falls at or past the cutoff hour.
func AfterCutoff(t time.Time) bool {
	return t.Hour() >= CutoffHour
}

// Sender delivers a payload to one subscription. *Service implements it;
// tests substitute a recorder.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Request describes one reminder to be delivered at SendAt. Tag identifies
// the reminder: scheduling again under the same tag replaces the pending one.
type Request struct {
	DeviceID string
	Tag      string
	Title    string
	Body     string
	SendAt   time.Time
	URL      string
	Kind     string
	Actions  []model.NotifAction
}

// Scheduler accepts reminder requests, holds them until due, and delivers
// them over web push. Delivery is fire-and-forget: a failed send is logged
// and the row is dropped, with no retry.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	store    *store.PushStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler backed by the given store.
func NewScheduler(sender Sender, pushStore *store.PushStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   sender,
		store:    pushStore,
		interval: 30 * time.Second,
		logger:   logger,
	}
}

// Schedule records a pending reminder. Requests whose send time is at or
// past the cutoff hour are dropped without error.
func (s *Scheduler) Schedule(req Request) error {
	if AfterCutoff(req.SendAt) {
		s.logger.Debug("reminder past cutoff, dropped", "tag", req.Tag, "send_at", req.SendAt)
		return nil
	}
	return s.store.UpsertScheduled(&model.ScheduledPush{
		DeviceID: req.DeviceID,
		Tag:      req.Tag,
		Title:    req.Title,
		Body:     req.Body,
		SendAt:   req.SendAt,
		URL:      req.URL,
		Kind:     req.Kind,
		Actions:  req.Actions,
	})
}

// CancelByPrefix removes all pending reminders for the device whose tag
// starts with prefix.
func (s *Scheduler) CancelByPrefix(deviceID, prefix string) error {
	return s.store.CancelByPrefix(deviceID, prefix)
}

// Start begins the delivery loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the delivery loop.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	due, err := s.store.ListDue(now)
	if err != nil {
		s.logger.Error("list due reminders", "error", err)
		return
	}

	for _, p := range due {
		s.deliver(p)
		if err := s.store.Delete(p.ID); err != nil {
			s.logger.Error("drop delivered reminder", "tag", p.Tag, "error", err)
		}
	}
}

func (s *Scheduler) deliver(p model.ScheduledPush) {
	subs, err := s.store.ListByDevice(p.DeviceID)
	if err != nil {
		s.logger.Error("list subscriptions", "device", p.DeviceID, "error", err)
		return
	}
	if len(subs) == 0 {
		s.logger.Debug("no subscriptions for device, reminder dropped", "tag", p.Tag)
		return
	}

	payload := Payload{
		Title:   p.Title,
		Body:    p.Body,
		URL:     p.URL,
		Tag:     p.Tag,
		Kind:    p.Kind,
		Actions: p.Actions,
	}

	for i := range subs {
		if err := s.sender.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.store.DeleteByEndpoint(subs[i].Endpoint)
				continue
			}
			s.logger.Error("send reminder", "tag", p.Tag, "error", err)
		}
	}
}
