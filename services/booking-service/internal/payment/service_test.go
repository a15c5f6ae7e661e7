package payment

import (
	"context"
	"errors"
	"testing"

	"roomstay-system/services/booking-service/internal/domain"
)

type fakeOrders struct {
	orders map[string]*domain.Order
}

func newFakeOrders(orders ...*domain.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

type capturingObserver struct {
	responses []Response
}

func (o *capturingObserver) OnPaymentSuccess(ctx context.Context, resp Response) {
	o.responses = append(o.responses, resp)
}

func TestService_Execute(t *testing.T) {
	ctx := context.Background()

	newSvc := func(orders orderGetter, strat Processor) (*Service, *capturingObserver) {
		bus := NewEventBus(testLogger())
		obs := &capturingObserver{}
		bus.Register(obs)
		svc := NewService(orders, bus, testLogger())
		svc.RegisterStrategy(MethodCreditCard, strat)
		return svc, obs
	}

	t.Run("success publishes to the event bus", func(t *testing.T) {
		orders := newFakeOrders(&domain.Order{ID: "order-1", Status: domain.StatusPending})
		strat := &scriptedStrategy{outcomes: []func() (*Response, error){succeeding("order-1")}}
		svc, obs := newSvc(orders, strat)

		resp, err := svc.Execute(ctx, Request{OrderID: "order-1", Method: MethodCreditCard})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.Status != StatusSuccess {
			t.Fatalf("expected SUCCESS, got %+v", resp)
		}
		if len(obs.responses) != 1 || obs.responses[0].TransactionID != resp.TransactionID {
			t.Fatalf("expected 1 published response, got %+v", obs.responses)
		}
	})

	t.Run("validation precedes retry: confirmed order, zero strategy calls", func(t *testing.T) {
		orders := newFakeOrders(&domain.Order{ID: "order-1", Status: domain.StatusConfirmed})
		strat := &scriptedStrategy{outcomes: []func() (*Response, error){succeeding("order-1")}}
		svc, obs := newSvc(orders, strat)

		_, err := svc.Execute(ctx, Request{OrderID: "order-1", Method: MethodCreditCard})
		if !errors.Is(err, domain.ErrInvalidOrderState) {
			t.Fatalf("expected ErrInvalidOrderState, got %v", err)
		}
		if strat.calls != 0 {
			t.Fatalf("strategy must not run for a non-pending order, got %d calls", strat.calls)
		}
		if len(obs.responses) != 0 {
			t.Fatalf("nothing may be published on validation failure, got %+v", obs.responses)
		}
	})

	t.Run("missing order fails validation", func(t *testing.T) {
		strat := &scriptedStrategy{outcomes: []func() (*Response, error){succeeding("ghost")}}
		svc, _ := newSvc(newFakeOrders(), strat)

		_, err := svc.Execute(ctx, Request{OrderID: "ghost", Method: MethodCreditCard})
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if strat.calls != 0 {
			t.Fatalf("strategy must not run for a missing order, got %d calls", strat.calls)
		}
	})

	t.Run("exhausted provider resolves to FAILED response", func(t *testing.T) {
		orders := newFakeOrders(&domain.Order{ID: "order-1", Status: domain.StatusPending})
		strat := &scriptedStrategy{outcomes: []func() (*Response, error){failing()}}
		svc, obs := newSvc(orders, strat)

		resp, err := svc.Execute(ctx, Request{OrderID: "order-1", Method: MethodCreditCard})
		if err != nil {
			t.Fatalf("provider exhaustion is not an error, got %v", err)
		}
		if resp.Status != StatusFailed {
			t.Fatalf("expected FAILED, got %+v", resp)
		}
		if len(obs.responses) != 0 {
			t.Fatalf("FAILED must not reach the event bus, got %+v", obs.responses)
		}
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		orders := newFakeOrders(&domain.Order{ID: "order-1", Status: domain.StatusPending})
		svc, _ := newSvc(orders, &scriptedStrategy{outcomes: []func() (*Response, error){succeeding("order-1")}})

		if _, err := svc.Execute(ctx, Request{OrderID: "order-1", Method: "barter"}); err == nil {
			t.Fatal("expected error for unsupported method")
		}
	})
}
