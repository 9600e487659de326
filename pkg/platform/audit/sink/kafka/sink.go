// Package kafka ships flushed audit batches to a Kafka topic for downstream
// retention and SIEM consumers.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "yeirin/pkg/platform/audit"
)

// Sink produces one record per event, keyed by user so a user's events stay ordered
// within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

type record struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Purpose   string `json:"purpose,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// New connects a producer to brokers.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Write produces the batch synchronously and returns the first failure.
func (s *Sink) Write(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(toRecord(e))
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		rec := &kgo.Record{Topic: s.topic, Value: value}
		if !e.UserID.IsNil() {
			rec.Key = []byte(e.UserID.String())
		}
		records = append(records, rec)
	}
	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}
	return nil
}

// EnsureTopic creates the audit topic when it does not exist yet. An existing
// topic is left as is, whatever its partition count.
func (s *Sink) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	resp, err := kadm.NewClient(s.client).CreateTopics(ctx, partitions, replication, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (s *Sink) Close() {
	s.client.Close()
}

func toRecord(e audit.Event) record {
	r := record{
		Category:  string(e.Category),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:   e.ActorID,
		Subject:   e.Subject,
		Action:    e.Action,
		Purpose:   e.Purpose,
		Decision:  e.Decision,
		Reason:    e.Reason,
		IP:        e.IP,
		Device:    e.Device,
		RequestID: e.RequestID,
	}
	if !e.UserID.IsNil() {
		r.UserID = e.UserID.String()
	}
	return r
}
