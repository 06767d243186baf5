package model

import "time"

// Notification kind constants. Kind travels in the push payload and comes
// back through the notification action channel.
const (
	KindBlock1Checkin = "b1_checkin"
	KindBlock2Checkin = "b2_checkin"
	KindBlock3Start   = "b3_start"
	KindBlock3Checkin = "b3_checkin"
)

// PushSubscription is a browser push endpoint registered for a device.
type PushSubscription struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}

// NotifAction is a button shown on a delivered notification.
type NotifAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// ScheduledPush is a pending reminder waiting for its send time. Tag is the
// identity key: scheduling again under the same tag replaces the pending row.
type ScheduledPush struct {
	ID       int64         `json:"id"`
	DeviceID string        `json:"device_id"`
	Tag      string        `json:"tag"`
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	SendAt   time.Time     `json:"send_at"`
	URL      string        `json:"url"`
	Kind     string        `json:"kind,omitempty"`
	Actions  []NotifAction `json:"actions,omitempty"`
}
