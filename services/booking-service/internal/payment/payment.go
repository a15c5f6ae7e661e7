package payment

import "context"

type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodPayPal     Method = "paypal"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Request and Response are transient value objects; the Response is the
// sole signal the payment event bus consumes.
type Request struct {
	OrderID string
	Method  Method
}

type Response struct {
	OrderID       string
	Status        Status
	TransactionID string
	Message       string
}

// Processor is implemented by concrete strategies and by the decorators
// wrapping them, so the pipeline composes uniformly.
type Processor interface {
	Process(ctx context.Context, req Request) (*Response, error)
}
