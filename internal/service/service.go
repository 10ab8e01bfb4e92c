package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// TxRunner runs fn as one unit of work against the store.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// storeError converts repository failures to the error taxonomy. Errors that
// already carry a code pass through unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStoreError(err)
}

func memberNotFound(memberID string) error {
	return apperrors.NewNotFound("member", map[string]any{"member_id": memberID})
}

// memberLookupError maps a failed member read.
func memberLookupError(err error, memberID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return memberNotFound(memberID)
	}
	return storeError(err)
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// publish delivers event after the write it describes has committed. Subscriber
// failures never undo that write; they are logged.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event subscriber failed",
			zap.String("event", string(event.Type)),
			zap.String("member_id", event.MemberID),
			zap.Error(err))
	}
}
