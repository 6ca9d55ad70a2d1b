package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

const defaultRetryDelay = 200 * time.Millisecond

// retryOnce runs op and, if it fails with an error retryable reports true,
// runs it one more time after a short backoff.
func retryOnce[T any](ctx context.Context, delay time.Duration, retryable func(error) bool, op func() (T, error)) (T, error) {
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.Reset()

	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, 1), ctx))
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientFailure)
}

func isBackendUnavailable(err error) bool {
	return errors.Is(err, domain.ErrBackendUnavailable)
}

// endSpan records err on span and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
