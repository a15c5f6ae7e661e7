package payment

import (
	"context"

	"github.com/sirupsen/logrus"
)

const defaultAttempts = 3

// RetryDecorator re-runs the wrapped processor up to a fixed bound.
// Returned errors are treated as transient provider failures. A returned
// non-SUCCESS response is also retried; the simulated providers only fail
// transiently, so a decline is not distinguished from a network blip here.
// A real gateway integration would need a retryable/permanent split.
//
// After the bound is exhausted the last response is returned without an
// error; callers must treat a nil or FAILED response as "payment did not
// succeed", not as a crash.
type RetryDecorator struct {
	next     Processor
	attempts int
	log      *logrus.Entry
}

func NewRetryDecorator(next Processor, attempts int, log *logrus.Entry) *RetryDecorator {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &RetryDecorator{next: next, attempts: attempts, log: log}
}

func (d *RetryDecorator) Process(ctx context.Context, req Request) (*Response, error) {
	var last *Response
	for attempt := 1; attempt <= d.attempts; attempt++ {
		resp, err := d.next.Process(ctx, req)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"order_id": req.OrderID,
				"attempt":  attempt,
			}).WithError(err).Warn("payment attempt failed")
			continue
		}
		last = resp
		if resp != nil && resp.Status == StatusSuccess {
			return resp, nil
		}
	}
	return last, nil
}
