package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("ONBOARDING_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ONBOARDING_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b, err := NewRedisBroker(ctx, Config{URL: url}, logger.NewNop(), nil)
	require.NoError(t, err)
	defer b.Close()

	msgs, err := b.Subscribe(ctx, "onboarding.test")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "onboarding.test", map[string]string{"type": "ping"}))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not a url"}, logger.NewNop(), nil)
	assert.Error(t, err)
}
