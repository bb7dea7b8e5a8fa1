package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ApplicationSubmitted()
		m.Decision("approved")
		m.ApprovalFailed("conflict")
		m.ObserveApproval(time.Second)
		m.AccountProvisioned("doctor")
		m.Notification("sent")
		m.OutboxProcessed(time.Millisecond)
		m.OutboxFailed("application.approved", true)
		m.HTTPRequest("GET", "/health", "200", time.Millisecond)
		m.RedisOperation("publish", nil)
	})
}

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("onboarding", reg)

	m.ApplicationSubmitted()
	m.ApplicationSubmitted()
	m.Decision("approved")
	m.AccountProvisioned("doctor")
	m.AccountProvisioned("doctor")
	m.OutboxFailed("application.approved", true)
	m.OutboxFailed("application.approved", false)
	m.RedisOperation("publish", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ApplicationsSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApplicationDecisions.WithLabelValues("approved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccountsProvisioned.WithLabelValues("doctor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRetries.WithLabelValues("application.approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedisOperations.WithLabelValues("publish", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("onboarding", prometheus.NewRegistry())
		NewMetrics("onboarding", prometheus.NewRegistry())
		NewMetrics("onboarding", nil)
		NewMetrics("onboarding", nil)
	})
}
