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

	id "securitypassport/pkg/domain"
	audit "securitypassport/pkg/platform/audit"
	"securitypassport/pkg/platform/audit/publishers/kafka"
	"securitypassport/pkg/testutil/containers"
)

type SinkIntegrationSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
	client *kgo.Client
	topic  string
}

func TestSinkIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkIntegrationSuite))
}

func (s *SinkIntegrationSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
	s.topic = "passport-audit-" + uuid.NewString()[:8]

	client, err := kgo.NewClient(kgo.SeedBrokers(s.broker.Brokers...))
	s.Require().NoError(err)
	s.client = client

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 1, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 1, 1), "second call tolerates existing topic")
}

func (s *SinkIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *SinkIntegrationSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant := id.TenantID(uuid.New())
	sink := kafka.NewSink(s.client, s.topic)
	err := sink.Append(ctx, audit.Event{
		Timestamp:  time.Now(),
		TenantID:   tenant,
		Action:     string(audit.ActionPassportExportZip),
		ObjectType: audit.ObjectTemplate,
		ObjectID:   "iso27001",
		Metadata:   map[string]any{"downloaded": 2},
	})
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(tenant.String(), string(records[0].Key))

	var msg map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &msg))
	s.Equal("passport.export.zip", msg["action"])
	s.Equal("iso27001", msg["object_id"])
}
