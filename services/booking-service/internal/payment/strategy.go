package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"roomstay-system/services/booking-service/internal/clock"
)

// Simulated provider strategies. Stateless and swappable by method key;
// each stamps its own transaction id prefix.

type CreditCardStrategy struct {
	sleeper clock.Sleeper
	latency time.Duration
}

func NewCreditCardStrategy(sleeper clock.Sleeper, latency time.Duration) *CreditCardStrategy {
	return &CreditCardStrategy{sleeper: sleeper, latency: latency}
}

func (s *CreditCardStrategy) Process(ctx context.Context, req Request) (*Response, error) {
	if err := s.sleeper.Sleep(ctx, s.latency); err != nil {
		return nil, err
	}
	return &Response{
		OrderID:       req.OrderID,
		Status:        StatusSuccess,
		TransactionID: "CC-" + uuid.NewString(),
		Message:       "credit card payment accepted",
	}, nil
}

type PayPalStrategy struct {
	sleeper clock.Sleeper
	latency time.Duration
}

func NewPayPalStrategy(sleeper clock.Sleeper, latency time.Duration) *PayPalStrategy {
	return &PayPalStrategy{sleeper: sleeper, latency: latency}
}

func (s *PayPalStrategy) Process(ctx context.Context, req Request) (*Response, error) {
	if err := s.sleeper.Sleep(ctx, s.latency); err != nil {
		return nil, err
	}
	return &Response{
		OrderID:       req.OrderID,
		Status:        StatusSuccess,
		TransactionID: "PP-" + uuid.NewString(),
		Message:       "paypal payment accepted",
	}, nil
}
