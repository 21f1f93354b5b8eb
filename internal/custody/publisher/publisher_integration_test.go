//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"veriseal/internal/custody/models"
	"veriseal/internal/custody/publisher"
	id "veriseal/pkg/domain"
	"veriseal/pkg/testutil/containers"
)

type PublisherIntegrationSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	topic    string
}

func TestPublisherIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherIntegrationSuite))
}

func (s *PublisherIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redpanda = mgr.GetRedpanda(s.T())
	s.topic = "custody-events-it"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var err error
	s.client, err = publisher.NewClient(ctx, publisher.ClientConfig{Brokers: s.redpanda.Brokers, Topic: s.topic})
	s.Require().NoError(err)
	s.Require().NoError(publisher.EnsureTopic(ctx, s.client, s.topic, 3, 1))
	s.Require().NoError(publisher.EnsureTopic(ctx, s.client, s.topic, 3, 1), "existing topic is accepted")
}

func (s *PublisherIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *PublisherIntegrationSuite) TestEventsArriveInOrderOnOnePartition() {
	p, err := publisher.New(s.client, s.topic, publisher.WithTimeout(10*time.Second))
	s.Require().NoError(err)

	shipmentID := id.NewShipmentID()
	var events []models.CustodyEvent
	for i := range 5 {
		events = append(events, models.CustodyEvent{
			ShipmentID: shipmentID,
			Sequence:   int64(i),
			Type:       models.EventCheckpointScan,
			Decision:   models.DecisionProceed,
			Hash:       "h",
			RecordedAt: time.Now().UTC(),
		})
	}
	s.Require().NoError(p.Publish(context.Background(), events))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	var got []models.CustodyEvent
	partitions := map[int32]bool{}
	for len(got) < len(events) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) != shipmentID.String() {
				return
			}
			var e models.CustodyEvent
			s.Require().NoError(json.Unmarshal(r.Value, &e))
			got = append(got, e)
			partitions[r.Partition] = true
		})
	}
	s.Len(partitions, 1)
	for i, e := range got {
		s.Equal(int64(i), e.Sequence)
	}
}
