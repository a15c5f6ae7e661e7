package lock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type publisher interface {
	Publish(topic string, message map[string]interface{})
}

// KafkaAuditObserver streams every lock event to Kafka for downstream audit
// consumers. The core never persists events itself.
type KafkaAuditObserver struct {
	producer publisher
	topic    string
}

func NewKafkaAuditObserver(producer publisher, topic string) *KafkaAuditObserver {
	return &KafkaAuditObserver{producer: producer, topic: topic}
}

func (o *KafkaAuditObserver) OnLockEvent(event Event) {
	o.producer.Publish(o.topic, map[string]interface{}{
		"type":      string(event.Type),
		"room_id":   event.RoomID,
		"holder_id": event.HolderID,
		"lease_id":  event.LeaseID,
		"reason":    event.Reason,
		"timestamp": event.Timestamp.Format(time.RFC3339),
	})
}

// AnalyticsObserver keeps in-process conflict counts per room so hot rooms
// show up in logs without a metrics stack.
type AnalyticsObserver struct {
	mu        sync.Mutex
	conflicts map[string]int
	log       *logrus.Entry
}

func NewAnalyticsObserver(log *logrus.Entry) *AnalyticsObserver {
	return &AnalyticsObserver{
		conflicts: make(map[string]int),
		log:       log,
	}
}

func (o *AnalyticsObserver) OnLockEvent(event Event) {
	if event.Type != EventConflictDetected {
		return
	}
	o.mu.Lock()
	o.conflicts[event.RoomID]++
	count := o.conflicts[event.RoomID]
	o.mu.Unlock()

	o.log.WithFields(logrus.Fields{
		"room_id":   event.RoomID,
		"holder_id": event.HolderID,
		"conflicts": count,
	}).Info("lock contention on room")
}

// ConflictCount reports how many denials were observed for a room.
func (o *AnalyticsObserver) ConflictCount(roomID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conflicts[roomID]
}

// AvailabilityObserver invalidates cached room search entries whenever a
// lock changes a room's visible availability. Best-effort: a failed
// invalidation only means a slightly staler listing.
type AvailabilityObserver struct {
	client *redis.Client
	log    *logrus.Entry
}

func NewAvailabilityObserver(client *redis.Client, log *logrus.Entry) *AvailabilityObserver {
	return &AvailabilityObserver{client: client, log: log}
}

func (o *AvailabilityObserver) OnLockEvent(event Event) {
	switch event.Type {
	case EventCreated, EventReleased, EventExpired:
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.client.Del(ctx, "room_search:"+event.RoomID).Err(); err != nil {
		o.log.WithFields(logrus.Fields{"room_id": event.RoomID}).WithError(err).
			Warn("search cache invalidation failed")
	}
}
