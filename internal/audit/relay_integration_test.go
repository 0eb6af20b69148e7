//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
	"custodia/pkg/testutil/containers"
)

func TestRelayIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	const topic = "custodia.audit"

	outbox := NewInMemoryOutbox()
	relay, err := NewRelay([]string{rp.Broker}, topic, outbox, nil, testutil.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(relay.Close)
	relay.interval = 100 * time.Millisecond

	require.NoError(t, relay.EnsureTopic(ctx))

	recorder := NewRecorder(outbox, testutil.DiscardLogger())
	actorCtx := requestcontext.WithUserID(ctx, 42)
	require.NoError(t, recorder.Record(actorCtx, "created", "evidence", 7))
	require.NoError(t, recorder.Record(actorCtx, "updated", "evidence", 7))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(runCtx)
	}()

	require.Eventually(t, func() bool {
		pending, err := outbox.ListUnpublished(ctx, 10)
		return err == nil && len(pending) == 0
	}, 10*time.Second, 100*time.Millisecond, "outbox was not drained")

	cancel()
	<-done

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, fetchCancel := context.WithTimeout(ctx, 10*time.Second)
	defer fetchCancel()

	var records []*kgo.Record
	for len(records) < 2 {
		fetches := consumer.PollFetches(fetchCtx)
		require.NoError(t, fetches.Err())
		records = append(records, fetches.Records()...)
	}
	require.Len(t, records, 2)

	var event Event
	require.NoError(t, json.Unmarshal(records[0].Value, &event))
	assert.Equal(t, "created", event.Action)
	assert.Equal(t, "evidence", event.Entity)
	assert.EqualValues(t, 7, event.EntityID)
	assert.EqualValues(t, 42, event.ActorID)
}
