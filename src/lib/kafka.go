package lib

import (
	"encoding/json"
	"log"
	"os"
	"tbs/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const PaymentEventsTopic = "payment-events"

func GetKafkaProducerConfig(clientId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	}
}

func KafkaProduceMessage(clientId string, topic string, payload types.JSONB) error {
	config := GetKafkaProducerConfig(clientId)
	p, err := kafka.NewProducer(&config)
	if err != nil {
		log.Printf("Error creating producer: %s\n", err.Error())
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding payload: %s\n", err.Error())
		return err
	}
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("Error producing to topic %s: %s\n", topic, err.Error())
		return err
	}
	return nil
}

// PublishPaymentEvent fans out a terminal booking transition for downstream
// consumers. Best effort: without a configured broker it only logs.
func PublishPaymentEvent(source string, bookingID uint, orderNo string, status string) {
	if os.Getenv("KAFKA_BROKER") == "" {
		log.Printf("[PaymentEvent] broker not configured, skipping %s for booking %d\n", source, bookingID)
		return
	}
	if err := KafkaProduceMessage("paymentEventsProducer", PaymentEventsTopic, types.JSONB{
		"source":     source,
		"booking_id": bookingID,
		"order_no":   orderNo,
		"status":     status,
	}); err != nil {
		log.Printf("Error publishing payment event for booking %d: %s\n", bookingID, err.Error())
	}
}
