// Package notify defines the outbound notification boundary. Payloads are
// a closed set of channel variants dispatched by type switch, each carrying
// its own strongly-typed fields.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Payload is sealed: only the variants in this package implement it.
type Payload interface {
	payload()
}

type EmailPayload struct {
	To      string
	Subject string
	Body    string
}

func (EmailPayload) payload() {}

type SMSPayload struct {
	PhoneNumber string
	Text        string
}

func (SMSPayload) payload() {}

// Sender delivers one payload. Failures are logged by callers and never
// propagate as booking or payment failures.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// LogSender writes notifications to the log instead of a transport.
// Stands in for the real email/SMS senders in development and tests.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender(log *logrus.Entry) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, p Payload) error {
	switch v := p.(type) {
	case EmailPayload:
		s.log.WithFields(logrus.Fields{"to": v.To, "subject": v.Subject}).Info("email notification")
	case SMSPayload:
		s.log.WithFields(logrus.Fields{"phone": v.PhoneNumber}).Info("sms notification")
	}
	return nil
}
