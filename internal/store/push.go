package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
)

// PushStore persists push subscriptions and pending scheduled pushes.
type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// UpsertSubscription registers a subscription endpoint for a device.
// Re-registering an existing endpoint refreshes its keys.
func (s *PushStore) UpsertSubscription(deviceID, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (device_id, endpoint, p256dh_key, auth_key)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET device_id = excluded.device_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key`,
		deviceID, endpoint, p256dh, auth,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return s.GetByEndpoint(endpoint)
}

// GetByEndpoint returns the subscription for an endpoint, or nil if absent.
func (s *PushStore) GetByEndpoint(endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, device_id, endpoint, p256dh_key, auth_key, created_at
		 FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	).Scan(&sub.ID, &sub.DeviceID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &sub, nil
}

// ListByDevice returns all subscriptions registered for a device.
func (s *PushStore) ListByDevice(deviceID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, device_id, endpoint, p256dh_key, auth_key, created_at
		 FROM push_subscriptions WHERE device_id = ? ORDER BY created_at DESC`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.DeviceID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteByEndpoint drops a subscription, typically after the push service
// reports it gone.
func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByDevice drops all subscriptions for a device (push disabled).
func (s *PushStore) DeleteByDevice(deviceID string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("delete device subscriptions: %w", err)
	}
	return nil
}

// UpsertScheduled inserts a pending push, replacing any pending push with
// the same (device, tag) pair. Tag is the idempotency key.
func (s *PushStore) UpsertScheduled(p *model.ScheduledPush) error {
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO scheduled_pushes (device_id, tag, title, body, send_at, url, kind, actions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id, tag) DO UPDATE SET
		   title = excluded.title, body = excluded.body, send_at = excluded.send_at,
		   url = excluded.url, kind = excluded.kind, actions = excluded.actions`,
		p.DeviceID, p.Tag, p.Title, p.Body, p.SendAt.UTC(), p.URL, p.Kind, string(actions),
	)
	if err != nil {
		return fmt.Errorf("upsert scheduled push: %w", err)
	}
	return nil
}

// CancelByPrefix removes all pending pushes for a device whose tag starts
// with the given prefix.
func (s *PushStore) CancelByPrefix(deviceID, prefix string) error {
	_, err := s.db.Exec(
		`DELETE FROM scheduled_pushes WHERE device_id = ? AND tag LIKE ? || '%'`,
		deviceID, prefix,
	)
	if err != nil {
		return fmt.Errorf("cancel scheduled pushes by prefix: %w", err)
	}
	return nil
}

// ListDue returns pending pushes whose send time is at or before now,
// oldest first.
func (s *PushStore) ListDue(now time.Time) ([]model.ScheduledPush, error) {
	rows, err := s.db.Query(
		`SELECT id, device_id, tag, title, body, send_at, url, kind, actions
		 FROM scheduled_pushes WHERE send_at <= ? ORDER BY send_at`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due pushes: %w", err)
	}
	defer rows.Close()

	var due []model.ScheduledPush
	for rows.Next() {
		var p model.ScheduledPush
		var actions string
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.Tag, &p.Title, &p.Body, &p.SendAt, &p.URL, &p.Kind, &actions); err != nil {
			return nil, fmt.Errorf("scan scheduled push: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &p.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		due = append(due, p)
	}
	return due, rows.Err()
}

// ListPending returns all pending pushes for a device, soonest first.
func (s *PushStore) ListPending(deviceID string) ([]model.ScheduledPush, error) {
	rows, err := s.db.Query(
		`SELECT id, device_id, tag, title, body, send_at, url, kind, actions
		 FROM scheduled_pushes WHERE device_id = ? ORDER BY send_at`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending pushes: %w", err)
	}
	defer rows.Close()

	var pending []model.ScheduledPush
	for rows.Next() {
		var p model.ScheduledPush
		var actions string
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.Tag, &p.Title, &p.Body, &p.SendAt, &p.URL, &p.Kind, &actions); err != nil {
			return nil, fmt.Errorf("scan scheduled push: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &p.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// Delete removes a pending push by row id, after delivery.
func (s *PushStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_pushes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scheduled push: %w", err)
	}
	return nil
}
