package events

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"

	"github.com/prolinq/messaging-backend/internal/model"
)

// Event kinds published to the message_events queue.
const (
	KindDeliverySent      = "delivery.sent"
	KindDeliveryFailed    = "delivery.failed"
	KindDeliveryCancelled = "delivery.cancelled"
	KindMessageRead       = "message.read"
)

// Event is the JSON envelope consumers see.
type Event struct {
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	JobID      int       `json:"job_id,omitempty"`
	EmailType  string    `json:"email_type,omitempty"`
	Recipient  string    `json:"recipient,omitempty"`
	Error      string    `json:"error,omitempty"`
	MessageID  int       `json:"message_id,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	ReceiverID int       `json:"receiver_id,omitempty"`
}

// Publisher emits delivery records and read receipts for the UI consumers.
// Publishing is best-effort: callers log failures and move on, a broker
// outage must never block a status transition.
type Publisher interface {
	DeliveryUpdated(kind string, job *model.EmailJob, errMsg string) error
	MessageRead(msg *model.AdminMessage) error
	Close() error
}

const queueName = "message_events"

// AMQPPublisher publishes events to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the events queue.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) DeliveryUpdated(kind string, job *model.EmailJob, errMsg string) error {
	return p.publish(Event{
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		JobID:      job.ID,
		EmailType:  string(job.EmailType),
		Recipient:  job.To,
		Error:      errMsg,
	})
}

func (p *AMQPPublisher) MessageRead(msg *model.AdminMessage) error {
	ev := Event{
		Kind:       KindMessageRead,
		OccurredAt: time.Now().UTC(),
		MessageID:  msg.ID,
		ReceiverID: msg.ReceiverID,
	}
	if msg.BulkCampaignID != nil {
		ev.CampaignID = *msg.BulkCampaignID
	}
	return p.publish(ev)
}

func (p *AMQPPublisher) publish(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.Publish(
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.ch.Close()
	return p.conn.Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) DeliveryUpdated(string, *model.EmailJob, string) error { return nil }
func (NopPublisher) MessageRead(*model.AdminMessage) error                 { return nil }
func (NopPublisher) Close() error                                          { return nil }
