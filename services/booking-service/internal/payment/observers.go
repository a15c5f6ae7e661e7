package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/domain"
	"roomstay-system/services/booking-service/internal/notify"
)

type publisher interface {
	Publish(topic string, message map[string]interface{})
}

// AuditObserver records every settled payment for downstream consumers.
type AuditObserver struct {
	producer publisher
	topic    string
	log      *logrus.Entry
}

func NewAuditObserver(producer publisher, topic string, log *logrus.Entry) *AuditObserver {
	return &AuditObserver{producer: producer, topic: topic, log: log}
}

func (o *AuditObserver) OnPaymentSuccess(ctx context.Context, resp Response) {
	o.log.WithFields(logrus.Fields{
		"order_id":       resp.OrderID,
		"transaction_id": resp.TransactionID,
	}).Info("payment settled")
	o.producer.Publish(o.topic, map[string]interface{}{
		"order_id":       resp.OrderID,
		"transaction_id": resp.TransactionID,
		"status":         string(resp.Status),
	})
}

// ReceiptObserver sends a best-effort receipt to the customer. A failed
// send is logged and dropped; the payment already succeeded.
type ReceiptObserver struct {
	orders    orderGetter
	customers domain.CustomerRepository
	sender    notify.Sender
	log       *logrus.Entry
}

func NewReceiptObserver(orders orderGetter, customers domain.CustomerRepository, sender notify.Sender, log *logrus.Entry) *ReceiptObserver {
	return &ReceiptObserver{orders: orders, customers: customers, sender: sender, log: log}
}

func (o *ReceiptObserver) OnPaymentSuccess(ctx context.Context, resp Response) {
	order, err := o.orders.GetByID(ctx, resp.OrderID)
	if err != nil {
		o.log.WithFields(logrus.Fields{"order_id": resp.OrderID}).WithError(err).
			Warn("receipt skipped: order lookup failed")
		return
	}
	customer, err := o.customers.GetCustomerByID(ctx, order.CustomerID)
	if err != nil {
		o.log.WithFields(logrus.Fields{"order_id": resp.OrderID}).WithError(err).
			Warn("receipt skipped: customer lookup failed")
		return
	}
	receipt := notify.EmailPayload{
		To:      customer.Email,
		Subject: "Payment received",
		Body: fmt.Sprintf("Your payment of %.2f for reservation %s was received (transaction %s).",
			order.TotalPrice, order.CheckInCode, resp.TransactionID),
	}
	if err := o.sender.Send(ctx, receipt); err != nil {
		o.log.WithFields(logrus.Fields{"order_id": resp.OrderID}).WithError(err).
			Warn("receipt notification failed")
	}
}

type confirmer interface {
	Confirm(ctx context.Context, orderID string) (*domain.Order, error)
}

// ReconciliationFailure is the operator-visible artifact produced when a
// payment succeeded but the order could not be confirmed durably. It must
// carry everything a human needs to reconcile manually.
type ReconciliationFailure struct {
	OrderID       string
	TransactionID string
	Attempts      int
	LastErr       error
	OccurredAt    time.Time
}

type ReconciliationReporter interface {
	Report(ctx context.Context, failure ReconciliationFailure)
}

// KafkaReconciliationReporter surfaces reconciliation failures on a
// dedicated topic and at error level so alerting picks them up.
type KafkaReconciliationReporter struct {
	producer publisher
	topic    string
	log      *logrus.Entry
}

func NewKafkaReconciliationReporter(producer publisher, topic string, log *logrus.Entry) *KafkaReconciliationReporter {
	return &KafkaReconciliationReporter{producer: producer, topic: topic, log: log}
}

func (r *KafkaReconciliationReporter) Report(ctx context.Context, failure ReconciliationFailure) {
	r.log.WithFields(logrus.Fields{
		"order_id":       failure.OrderID,
		"transaction_id": failure.TransactionID,
		"attempts":       failure.Attempts,
	}).WithError(failure.LastErr).
		Error("payment succeeded but order confirmation failed; manual reconciliation required")
	r.producer.Publish(r.topic, map[string]interface{}{
		"order_id":       failure.OrderID,
		"transaction_id": failure.TransactionID,
		"attempts":       failure.Attempts,
		"error":          fmt.Sprint(failure.LastErr),
		"occurred_at":    failure.OccurredAt.Format(time.RFC3339),
	})
}

const (
	confirmAttempts = 3
	confirmDelay    = 2 * time.Second
)

// StatusObserver is the correctness-critical settlement path: it moves the
// paid order to confirmed through the state machine. Confirmation is
// retried a bounded number of times; exhaustion produces a reconciliation
// report, never a silent log line and never an unbounded retry loop.
type StatusObserver struct {
	orders   orderGetter
	machine  confirmer
	sleeper  clock.Sleeper
	reporter ReconciliationReporter
	clock    clock.Clock
	attempts int
	delay    time.Duration
	log      *logrus.Entry
}

type StatusObserverOption func(*StatusObserver)

func WithConfirmAttempts(n int) StatusObserverOption {
	return func(o *StatusObserver) {
		if n > 0 {
			o.attempts = n
		}
	}
}

func WithConfirmDelay(d time.Duration) StatusObserverOption {
	return func(o *StatusObserver) {
		if d > 0 {
			o.delay = d
		}
	}
}

func NewStatusObserver(
	orders orderGetter,
	machine confirmer,
	sleeper clock.Sleeper,
	reporter ReconciliationReporter,
	clk clock.Clock,
	log *logrus.Entry,
	opts ...StatusObserverOption,
) *StatusObserver {
	o := &StatusObserver{
		orders:   orders,
		machine:  machine,
		sleeper:  sleeper,
		reporter: reporter,
		clock:    clk,
		attempts: confirmAttempts,
		delay:    confirmDelay,
		log:      log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *StatusObserver) OnPaymentSuccess(ctx context.Context, resp Response) {
	if _, err := o.orders.GetByID(ctx, resp.OrderID); err != nil {
		// A missing order is not transient; retrying cannot create it.
		if errors.Is(err, domain.ErrOrderNotFound) {
			o.log.WithFields(logrus.Fields{
				"order_id":       resp.OrderID,
				"transaction_id": resp.TransactionID,
			}).Error("paid order does not exist")
			return
		}
		o.log.WithFields(logrus.Fields{"order_id": resp.OrderID}).WithError(err).
			Warn("order lookup failed before confirmation, proceeding to confirm attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		_, err := o.machine.Confirm(ctx, resp.OrderID)
		if err == nil {
			o.log.WithFields(logrus.Fields{
				"order_id":       resp.OrderID,
				"transaction_id": resp.TransactionID,
				"attempt":        attempt,
			}).Info("order confirmed after payment")
			return
		}
		lastErr = err
		o.log.WithFields(logrus.Fields{
			"order_id": resp.OrderID,
			"attempt":  attempt,
		}).WithError(err).Warn("order confirmation attempt failed")

		if attempt < o.attempts {
			if err := o.sleeper.Sleep(ctx, o.delay); err != nil {
				break
			}
		}
	}

	o.reporter.Report(ctx, ReconciliationFailure{
		OrderID:       resp.OrderID,
		TransactionID: resp.TransactionID,
		Attempts:      o.attempts,
		LastErr:       lastErr,
		OccurredAt:    o.clock.Now(),
	})
}
