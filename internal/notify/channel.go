// Package notify delivers outbound text messages to members.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/messaging"
)

// Channel sends a text to a destination address. A nil error means the
// message was accepted by the channel.
type Channel interface {
	Send(ctx context.Context, to, body string) error
}

// LogChannel only logs messages. Used when no provider is configured.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel creates a log-only channel.
func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Send(_ context.Context, to, body string) error {
	c.logger.Info("notification (log channel)", zap.String("phone", to), zap.String("body", body))
	return nil
}

// ReminderPublisher enqueues a reminder for asynchronous delivery.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *messaging.ReminderMessage) error
}

// QueueChannel hands messages to the broker; the notification worker delivers them.
type QueueChannel struct {
	publisher ReminderPublisher
}

// NewQueueChannel wraps a publisher.
func NewQueueChannel(publisher ReminderPublisher) *QueueChannel {
	return &QueueChannel{publisher: publisher}
}

func (c *QueueChannel) Send(ctx context.Context, to, body string) error {
	return c.publisher.PublishReminder(ctx, messaging.NewReminderMessage(MemberIDFrom(ctx), to, body))
}

type memberIDKey struct{}

// WithMemberID tags ctx with the recipient member for channels that record it.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberIDKey{}, memberID)
}

// MemberIDFrom returns the member tagged by WithMemberID, if any.
func MemberIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(memberIDKey{}).(string)
	return id
}

// Sent is one message captured by a RecordingChannel.
type Sent struct {
	To   string
	Body string
}

// RecordingChannel keeps messages in memory and can fail chosen destinations.
type RecordingChannel struct {
	mu     sync.Mutex
	sent   []Sent
	FailTo map[string]error
}

// NewRecordingChannel creates an empty recorder.
func NewRecordingChannel() *RecordingChannel {
	return &RecordingChannel{FailTo: map[string]error{}}
}

func (c *RecordingChannel) Send(_ context.Context, to, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.FailTo[to]; ok {
		return err
	}
	c.sent = append(c.sent, Sent{To: to, Body: body})
	return nil
}

// Sent returns a copy of the delivered messages.
func (c *RecordingChannel) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}
