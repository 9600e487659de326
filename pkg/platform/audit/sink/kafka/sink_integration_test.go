//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "yeirin/pkg/domain"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/audit/sink/kafka"
	"yeirin/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	broker *containers.KafkaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.broker = containers.NewKafkaContainer(s.T())
}

func (s *KafkaSinkSuite) newSink(topic string) *kafka.Sink {
	sink, err := kafka.New(s.broker.Brokers, topic)
	s.Require().NoError(err)
	s.T().Cleanup(sink.Close)
	return sink
}

func (s *KafkaSinkSuite) consume(topic string, want int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var records []*kgo.Record
	for len(records) < want {
		fetches := client.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out after %d records", len(records))
		fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
	}
	return records
}

func (s *KafkaSinkSuite) TestEnsureTopicIsIdempotent() {
	sink := s.newSink("yeirin.audit.ensure")
	ctx := context.Background()

	s.Require().NoError(sink.EnsureTopic(ctx, 3, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 3, 1))
}

func (s *KafkaSinkSuite) TestWriteKeysRecordsByUser() {
	topic := "yeirin.audit.write"
	sink := s.newSink(topic)
	ctx := context.Background()
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))

	userID := id.UserID(uuid.New())
	now := time.Now().UTC()
	s.Require().NoError(sink.Write(ctx, []audit.Event{
		{Category: audit.CategoryCompliance, Timestamp: now, UserID: userID, Action: string(audit.EventConsentGranted), Purpose: "counsel_matching"},
		{Category: audit.CategorySecurity, Timestamp: now, Action: "rate_limit_exceeded", IP: "10.0.0.7"},
	}))

	records := s.consume(topic, 2)
	s.Require().Len(records, 2)
	s.Equal(userID.String(), string(records[0].Key))
	s.Empty(records[1].Key)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &body))
	s.Equal("consent_granted", body["action"])
	s.Equal("counsel_matching", body["purpose"])

	s.Require().NoError(json.Unmarshal(records[1].Value, &body))
	s.Equal("10.0.0.7", body["ip"])
}

func (s *KafkaSinkSuite) TestEmptyBatchIsNoop() {
	sink := s.newSink("yeirin.audit.empty")
	s.NoError(sink.Write(context.Background(), nil))
}
