package payment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Service owns the strategy registry and composes the pipeline per
// request: validation -> retry -> strategy. On SUCCESS it hands the
// response to the event bus, which drives order confirmation and
// notifications.
type Service struct {
	strategies map[Method]Processor
	orders     orderGetter
	bus        *EventBus
	attempts   int
	log        *logrus.Entry
}

type ServiceOption func(*Service)

func WithRetryAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func NewService(orders orderGetter, bus *EventBus, log *logrus.Entry, opts ...ServiceOption) *Service {
	s := &Service{
		strategies: make(map[Method]Processor),
		orders:     orders,
		bus:        bus,
		attempts:   defaultAttempts,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RegisterStrategy(method Method, p Processor) {
	s.strategies[method] = p
}

// Execute runs a payment for the order. Validation-class errors (missing
// order, non-pending order, unknown method) return as errors; provider
// failures resolve to a FAILED response after the retry bound.
func (s *Service) Execute(ctx context.Context, req Request) (*Response, error) {
	strategy, ok := s.strategies[req.Method]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}

	pipeline := NewValidationDecorator(
		NewRetryDecorator(strategy, s.attempts, s.log),
		s.orders,
	)

	resp, err := pipeline.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Status != StatusSuccess {
		failed := &Response{
			OrderID: req.OrderID,
			Status:  StatusFailed,
			Message: fmt.Sprintf("payment did not succeed after %d attempts", s.attempts),
		}
		if resp != nil {
			failed.TransactionID = resp.TransactionID
			if resp.Message != "" {
				failed.Message = resp.Message
			}
		}
		s.log.WithFields(logrus.Fields{
			"order_id": req.OrderID,
			"method":   req.Method,
		}).Warn("payment failed")
		return failed, nil
	}

	s.bus.Publish(ctx, *resp)
	return resp, nil
}
