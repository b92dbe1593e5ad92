package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"grocery-order-service/config"
	"grocery-order-service/models"
	"grocery-order-service/store"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartOrderConsumer consumes the order event queue. Its main job is the
// deferred payment_check event: if an online order is still awaiting
// payment when the provider's window has elapsed, the payment is marked
// Failed (the order itself stays Processing and retryable).
func StartOrderConsumer(ch *amqp.Channel, cfg *config.Config, ledger *store.OrderStore) {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"grocery-order-service", // consumer tag
		false,                   // auto-ack
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register consumer: %v", err)
	}

	go func() {
		for msg := range msgs {
			processOrderMessage(msg, ledger)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"grocery-order-service-dlq", // consumer tag
		false,                       // auto-ack
		false,                       // exclusive
		false,                       // no-local
		false,                       // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register DLQ consumer: %v", err)
		return
	}

	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(msg)
		}
	}()
}

func processOrderMessage(msg amqp.Delivery, ledger *store.OrderStore) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid order event: %s", msg.Body)
		if err := msg.Nack(false, false); err != nil {
			log.Printf("Failed to nack message: %v", err)
		}
		return
	}

	switch event.Type {
	case "created":
		log.Printf("Order %s created for user %d (total %.0f)", event.OrderID, event.UserID, event.Total)
	case "cancelled":
		log.Printf("Order %s cancelled by user %d", event.OrderID, event.UserID)
	case "payment_check":
		handlePaymentCheck(event.OrderID, ledger)
	default:
		log.Printf("Unknown event type: %s", event.Type)
	}

	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack message: %v", err)
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: %s", msg.Body)
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack dead letter: %v", err)
	}
}

func handlePaymentCheck(orderID string, ledger *store.OrderStore) {
	err := ledger.FailPayment(context.Background(), orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		log.Printf("Payment check for unknown order %s", orderID)
		return
	}
	if err != nil {
		log.Printf("Failed to expire payment for order %s: %v", orderID, err)
		return
	}
	log.Printf("Payment window elapsed for order %s", orderID)
}
