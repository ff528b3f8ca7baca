package notify

import (
	"context"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/mqtt"
)

type sent struct {
	title string
	body  string
}

type fakeSender struct {
	messages []sent
	errs     []error
	block    chan struct{}
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	if f.block != nil {
		<-f.block
	}
	title, _ := params.Title()
	f.messages = append(f.messages, sent{title: title, body: message})
	return f.errs
}

var ts = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)

func TestNewRequiresURLs(t *testing.T) {
	t.Parallel()

	_, err := New(&conf.NotifySettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewRedactsBadURL(t *testing.T) {
	t.Parallel()

	bad := "nosuchservice://secret-token@host"
	_, err := New(&conf.NotifySettings{Enabled: true, URLs: []string{bad}})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestPublishPlateUnregistered(t *testing.T) {
	t.Parallel()

	fake := &fakeSender{}
	n := newNotifier(fake, true)

	ev := mqtt.NewPlateEvent("gate-1", "QWE987", 0.87, 0.7, nil, ts)
	require.NoError(t, n.PublishPlate(context.Background(), ev))

	require.Len(t, fake.messages, 1)
	assert.Equal(t, "Placa no registrada: QWE987", fake.messages[0].title)
	assert.Contains(t, fake.messages[0].body, "no se encontró")
	assert.Contains(t, fake.messages[0].body, "87%")
	assert.Contains(t, fake.messages[0].body, "gate-1")
	assert.Contains(t, fake.messages[0].body, "2026-05-04 08:30:00")
}

func TestPublishPlateRegistered(t *testing.T) {
	t.Parallel()

	record := &datastore.VehicleRecord{Plate: "ABC123", Brand: "Kia", Model: "Rio", Year: 2021, OwnerName: "Marta Ruiz"}
	ev := mqtt.NewPlateEvent("", "ABC123", 0.95, 0.9, record, ts)

	quiet := &fakeSender{}
	require.NoError(t, newNotifier(quiet, true).PublishPlate(context.Background(), ev))
	assert.Empty(t, quiet.messages, "registered plates are skipped when only unregistered are reported")

	all := &fakeSender{}
	require.NoError(t, newNotifier(all, false).PublishPlate(context.Background(), ev))
	require.Len(t, all.messages, 1)
	assert.Equal(t, "Placa registrada: ABC123", all.messages[0].title)
	assert.Contains(t, all.messages[0].body, "Marta Ruiz")
	assert.Contains(t, all.messages[0].body, "Kia Rio (2021)")
	assert.NotContains(t, all.messages[0].body, "Teléfono")
}

func TestPublishPlateSendError(t *testing.T) {
	t.Parallel()

	fake := &fakeSender{errs: []error{nil, errors.NewStd("401 unauthorized")}}
	err := newNotifier(fake, false).PublishPlate(context.Background(), mqtt.NewPlateEvent("", "X1", 1, 1, nil, ts))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestPublishPlateHonorsContext(t *testing.T) {
	t.Parallel()

	fake := &fakeSender{block: make(chan struct{})}
	defer close(fake.block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := newNotifier(fake, false).PublishPlate(ctx, mqtt.NewPlateEvent("", "X1", 1, 1, nil, ts))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
