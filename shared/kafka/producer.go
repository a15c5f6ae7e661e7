// shared/kafka/producer.go
package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type Producer struct {
	producer sarama.AsyncProducer
	log      *logrus.Entry
}

func NewProducer(brokers string, log *logrus.Entry) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal       // Balance speed and reliability
	config.Producer.Compression = sarama.CompressionSnappy   // Better throughput
	config.Producer.Flush.Frequency = 500 * time.Millisecond // Batch messages
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewAsyncProducer([]string{brokers}, config)
	if err != nil {
		return nil, err
	}

	// Handle errors in separate goroutine
	go func() {
		for err := range producer.Errors() {
			log.WithError(err).Error("failed to send kafka message")
		}
	}()

	return &Producer{producer: producer, log: log}, nil
}

func (p *Producer) Publish(topic string, message map[string]interface{}) {
	bytes, err := json.Marshal(message)
	if err != nil {
		p.log.WithError(err).Error("failed to marshal kafka message")
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(bytes),
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
