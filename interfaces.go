package chump

import (
	"context"
	"time"
)

// Notification is a message created by User.CreateMessage: a *Message, or an
// *EmergencyMessage when the priority is Emergency.
type Notification interface {
	// Send delivers the notification; it can succeed at most once.
	Send(ctx context.Context) error

	// IsSent is Unknown before Send, then Yes or No.
	IsSent() Tristate

	// ID is the provider-assigned request id of a sent notification.
	ID() string

	// SentAt is when the provider accepted the notification, in UTC.
	SentAt() time.Time

	// Err is the provider's rejection when IsSent is No.
	Err() error

	Priority() Priority
	String() string
}

// Ensure both message kinds implement Notification
var (
	_ Notification = (*Message)(nil)
	_ Notification = (*EmergencyMessage)(nil)
)
