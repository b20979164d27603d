package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type namedObserver struct {
	NopObserver
	name string
}

func (o *namedObserver) Name() string { return o.name }

type reinitObserver struct {
	NopObserver
	name    string
	reinits int
	err     error
}

func (o *reinitObserver) Name() string { return o.name }

func (o *reinitObserver) Reinit() error {
	o.reinits++
	return o.err
}

func TestRegistryAttachDuplicate(t *testing.T) {
	reg := NewRegistry(zap.NewNop(), nil)

	obs := &namedObserver{name: "first"}
	require.NoError(t, reg.Attach(obs))

	err := reg.Attach(obs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateObserver)

	// Two distinct instances of the same type never conflict.
	other := &namedObserver{name: "first"}
	require.NoError(t, reg.Attach(other))
	assert.Len(t, reg.Observers(), 2)
}

func TestRegistryAttachOrderPreserved(t *testing.T) {
	reg := NewRegistry(zap.NewNop(), nil)

	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		require.NoError(t, reg.Attach(&namedObserver{name: name}))
	}

	got := reg.Observers()
	require.Len(t, got, len(names))
	for i, obs := range got {
		assert.Equal(t, names[i], obs.Name())
	}
}

func TestRegistryEnsureInitializedIdempotent(t *testing.T) {
	calls := 0
	builtin := func() []Observer {
		calls++
		return []Observer{&namedObserver{name: "builtin"}}
	}
	reg := NewRegistry(zap.NewNop(), builtin)

	require.NoError(t, reg.EnsureInitialized())
	require.NoError(t, reg.EnsureInitialized())
	require.NoError(t, reg.EnsureInitialized())

	assert.Equal(t, 1, calls)
	assert.Len(t, reg.Observers(), 1)
}

func TestRegistryReinitialize(t *testing.T) {
	stateful := &reinitObserver{name: "stateful"}
	failing := &reinitObserver{name: "failing", err: errors.New("connection refused")}
	plain := &namedObserver{name: "plain"}

	reg := NewRegistry(zap.NewNop(), func() []Observer {
		return []Observer{stateful, failing, plain}
	})

	// Reinitialize initializes first if needed.
	require.NoError(t, reg.Reinitialize())
	assert.Len(t, reg.Observers(), 3)
	assert.Equal(t, 1, stateful.reinits)

	// A failing hook does not abort the others.
	require.NoError(t, reg.Reinitialize())
	assert.Equal(t, 2, stateful.reinits)
	assert.Equal(t, 2, failing.reinits)
}

func TestRegistryInitFiresBeforeDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop(), func() []Observer {
		return []Observer{&namedObserver{name: "builtin"}}
	})
	d := NewDispatcher(reg, zap.NewNop())

	ev := NewHostUp(testRecord())
	require.NoError(t, d.Fire(context.Background(), 1, ev))
	assert.Contains(t, ev.HandledObservers, "builtin")
}
