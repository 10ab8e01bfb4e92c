package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamatrack/chama-service/internal/messaging"
	"github.com/chamatrack/chama-service/internal/notify"
)

type fakeConsumer struct {
	messages []*messaging.ReminderMessage
	results  []error
	err      error
	closed   bool
}

func (f *fakeConsumer) ConsumeReminders(ctx context.Context, handler func(context.Context, *messaging.ReminderMessage) error) error {
	for _, msg := range f.messages {
		f.results = append(f.results, handler(ctx, msg))
	}
	return f.err
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func noBackoff(int) time.Duration { return 0 }

func TestHandleDeliversAndReportsFailures(t *testing.T) {
	channel := notify.NewRecordingChannel()
	channel.FailTo["+254722345678"] = errors.New("rejected")
	w := NewNotificationWorker(nil, channel, nil, nil)
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, messaging.NewReminderMessage("m1", "+254712345678", "hello")))
	assert.Error(t, w.Handle(ctx, messaging.NewReminderMessage("m2", "+254722345678", "hello")))
	assert.NoError(t, w.Handle(ctx, messaging.NewReminderMessage("m3", "", "hello")))

	sent := channel.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+254712345678", sent[0].To)
}

func TestRunReconnectsAfterConnectionLoss(t *testing.T) {
	channel := notify.NewRecordingChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeConsumer{
		messages: []*messaging.ReminderMessage{messaging.NewReminderMessage("m1", "+254712345678", "one")},
		err:      messaging.ErrDeliveriesClosed,
	}
	second := &fakeConsumer{
		messages: []*messaging.ReminderMessage{messaging.NewReminderMessage("m2", "+254722345678", "two")},
	}
	dials := 0
	dial := func(context.Context) (Consumer, error) {
		dials++
		switch dials {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			return first, nil
		default:
			cancel()
			second.err = ctx.Err()
			return second, nil
		}
	}

	w := NewNotificationWorker(dial, channel, nil, nil)
	w.backoff = noBackoff

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, dials)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Len(t, channel.Sent(), 2)
}

func TestRunStopsOnNonConnectionError(t *testing.T) {
	boom := errors.New("queue not found")
	consumer := &fakeConsumer{err: boom}
	w := NewNotificationWorker(func(context.Context) (Consumer, error) { return consumer, nil },
		notify.NewRecordingChannel(), nil, nil)
	w.backoff = noBackoff

	assert.ErrorIs(t, w.Run(context.Background()), boom)
	assert.True(t, consumer.closed)
}
