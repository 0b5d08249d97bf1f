//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ofertas/internal/status/metrics"
	"ofertas/internal/status/models"
	"ofertas/pkg/testutil/containers"
)

func TestKafkaPublisherForwardsStatusChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := metrics.New(prometheus.NewRegistry())
	pub, err := NewKafkaPublisher(ctx, []string{rp.Broker}, WithTopic("status-test"), WithMetrics(m))
	require.NoError(t, err)

	// Creating the topic twice must be tolerated.
	again, err := NewKafkaPublisher(ctx, []string{rp.Broker}, WithTopic("status-test"))
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))

	updated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	pub.Handle(ctx, models.StatusChanged{ID: "c1", Status: models.StatusApproved, UpdatedAt: updated})
	require.NoError(t, pub.Close(ctx))
	require.Equal(t, 1.0, promtest.ToFloat64(m.EventsForwarded.WithLabelValues("ok")))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics("status-test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) == 0 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}

	require.Len(t, records, 1)
	require.Equal(t, "c1", string(records[0].Key))

	var ev models.StatusChanged
	require.NoError(t, json.Unmarshal(records[0].Value, &ev))
	require.Equal(t, models.StatusApproved, ev.Status)
	require.True(t, updated.Equal(ev.UpdatedAt))
}
