package booking

import (
	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/domain"
)

// PriceObserverRegistry subscribes an order to price changes for its room
// type so the total can be re-derived. The update mechanism lives outside
// this service; only registration happens here.
type PriceObserverRegistry interface {
	RegisterOrder(order *domain.Order)
}

type logPriceRegistry struct {
	log *logrus.Entry
}

// NewLogPriceRegistry returns a registry that only records registrations.
func NewLogPriceRegistry(log *logrus.Entry) PriceObserverRegistry {
	return &logPriceRegistry{log: log}
}

func (r *logPriceRegistry) RegisterOrder(order *domain.Order) {
	r.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"room_id":  order.RoomID,
	}).Debug("order registered for price updates")
}
