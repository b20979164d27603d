package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

func testRecord() *server.Record {
	return &server.Record{
		ServerID: "srv-1",
		EnvID:    1,
		FarmID:   10,
		Platform: "ec2",
		Status:   server.StatusPending,
	}
}

// recordingObserver notes every handled event kind and can fail on demand.
type recordingObserver struct {
	NopObserver
	name    string
	handled []string
	failOn  Kind
	custom  int
}

func (o *recordingObserver) Name() string { return o.name }

func (o *recordingObserver) handle(kind Kind) error {
	o.handled = append(o.handled, string(kind))
	if o.failOn == kind {
		return errors.New("handler broke")
	}
	return nil
}

func (o *recordingObserver) OnHostUp(ctx context.Context, ev *Event) error {
	return o.handle(KindHostUp)
}

func (o *recordingObserver) OnHostDown(ctx context.Context, ev *Event) error {
	return o.handle(KindHostDown)
}

func (o *recordingObserver) OnCustomEvent(ctx context.Context, ev *Event) error {
	o.custom++
	return o.handle(KindCustom)
}

func newTestDispatcher(observers ...Observer) *Dispatcher {
	reg := NewRegistry(zap.NewNop(), func() []Observer { return observers })
	return NewDispatcher(reg, zap.NewNop())
}

func TestFireRecordsTimingPerObserver(t *testing.T) {
	a := &recordingObserver{name: "a"}
	b := &recordingObserver{name: "b"}
	c := &recordingObserver{name: "c"}
	d := newTestDispatcher(a, b, c)

	ev := NewHostUp(testRecord())
	require.NoError(t, d.Fire(context.Background(), 10, ev))

	assert.Equal(t, int64(10), ev.FarmID)
	require.Len(t, ev.HandledObservers, 3)
	for _, name := range []string{"a", "b", "c"} {
		assert.Contains(t, ev.HandledObservers, name)
	}
}

func TestFireFailFast(t *testing.T) {
	first := &recordingObserver{name: "first"}
	failing := &recordingObserver{name: "failing", failOn: KindHostUp}
	never := &recordingObserver{name: "never"}
	d := newTestDispatcher(first, failing, never)

	ev := NewHostUp(testRecord())
	err := d.Fire(context.Background(), 10, ev)
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "failing", de.Observer)
	assert.Equal(t, KindHostUp, de.Kind)

	// Observers before the failing one ran exactly once, later ones never.
	assert.Equal(t, []string{"HostUp"}, first.handled)
	assert.Equal(t, []string{"HostUp"}, failing.handled)
	assert.Empty(t, never.handled)

	// Partial timings remain available for diagnostics.
	assert.Contains(t, ev.HandledObservers, "first")
	assert.NotContains(t, ev.HandledObservers, "failing")
	assert.NotContains(t, ev.HandledObservers, "never")
}

func TestFireRoutesCustomEvents(t *testing.T) {
	obs := &recordingObserver{name: "obs"}
	d := newTestDispatcher(obs)

	ev := NewCustom(testRecord(), "DeployFinished")
	require.NoError(t, d.Fire(context.Background(), 10, ev))

	assert.Equal(t, 1, obs.custom)
	assert.Equal(t, "DeployFinished", ev.Name())
	assert.True(t, ev.IsCustom())
}

func TestFireKindRouting(t *testing.T) {
	obs := &recordingObserver{name: "obs"}
	d := newTestDispatcher(obs)

	require.NoError(t, d.Fire(context.Background(), 10, NewHostUp(testRecord())))
	require.NoError(t, d.Fire(context.Background(), 10, NewHostDown(testRecord())))

	assert.Equal(t, []string{"HostUp", "HostDown"}, obs.handled)
}
