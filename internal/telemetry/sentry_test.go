package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
)

// mockTransport records events instead of sending them.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

//nolint:gocritic // hugeParam: interface requirement
func (t *mockTransport) Configure(sentry.ClientOptions) {}
func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}
func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func TestInitSentryDisabled(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, InitSentry(settings))
}

func TestInitSentryRequiresDSN(t *testing.T) {
	settings := &conf.Settings{}
	settings.Sentry.Enabled = true

	err := InitSentry(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.User = sentry.User{ID: "u1", Email: "a@b.c"}
	event.ServerName = "gate-host"
	event.Tags = map[string]string{"plate": "ABC123", "component": "pipeline", "hostname": "h"}
	event.Contexts = map[string]sentry.Context{"owner": {"value": "Ana"}, "os": {}, "application": {}}
	event.Extra = map[string]any{"email": "a@b.c", "component": "pipeline"}

	out := applyPrivacyFilters(event)

	assert.True(t, out.User.IsEmpty())
	assert.Empty(t, out.ServerName)
	assert.Equal(t, map[string]string{"component": "pipeline"}, out.Tags)
	assert.Contains(t, out.Contexts, "application")
	assert.NotContains(t, out.Contexts, "owner")
	assert.NotContains(t, out.Contexts, "os")
	assert.Equal(t, map[string]any{"component": "pipeline"}, out.Extra)
}

func TestCaptureErrorThroughMockTransport(t *testing.T) {
	transport := &mockTransport{}
	settings := &conf.Settings{Version: "1.0.0"}
	settings.Sentry.Enabled = true
	settings.Sentry.DSN = "https://public@sentry.example.com/1"

	require.NoError(t, initSentry(settings, transport))
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		sentryInitialized.Store(false)
	})

	CaptureError(errors.NewStd("model file truncated"), "detector")
	Flush(time.Second)

	events := transport.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "detector", events[0].Tags["component"])
	assert.Equal(t, "platewatch@1.0.0", events[0].Release)
	assert.Empty(t, events[0].ServerName)
}
