package behavior

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/testhelper"
)

type scriptedBehavior struct {
	Nop
	name       string
	handleErr  error
	extendErr  error
	handled    *[]string
	extended   *[]string
	hooksFired *[]string
}

func (b *scriptedBehavior) Name() string { return b.name }

func (b *scriptedBehavior) HandleMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	*b.handled = append(*b.handled, b.name)
	return b.handleErr
}

func (b *scriptedBehavior) ExtendMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	*b.extended = append(*b.extended, b.name)
	return b.extendErr
}

func (b *scriptedBehavior) OnHostDown(ctx context.Context, rec *server.Record) error {
	*b.hooksFired = append(*b.hooksFired, b.name)
	return b.handleErr
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	handled    []string
	extended   []string
	hooksFired []string
}

// newDispatcherFixture builds a dispatcher whose registry serves scripted
// behaviors for the given role behavior names. The base slot is scripted
// too so ordering is observable.
func newDispatcherFixture(t *testing.T, roleBehaviors []string, failing map[string]error) *dispatcherFixture {
	t.Helper()

	f := &dispatcherFixture{}

	registry := NewRegistry()
	register := func(name string) {
		require.NoError(t, registry.Register(name, func(deps Deps) Behavior {
			return &scriptedBehavior{
				name:       name,
				handleErr:  failing[name],
				extendErr:  failing[name],
				handled:    &f.handled,
				extended:   &f.extended,
				hooksFired: &f.hooksFired,
			}
		}))
	}
	register(NameBase)
	for _, name := range roleBehaviors {
		register(name)
	}

	farms := testhelper.NewMockFarmRepository()
	farms.Roles[5] = &farm.Role{ID: 5, Behaviors: roleBehaviors}

	f.dispatcher = NewDispatcher(registry, Deps{Farms: farms}, nil)
	return f
}

func chainRecord() *server.Record {
	return &server.Record{ServerID: "srv-1", RoleID: 5}
}

func TestForServerBaseFirst(t *testing.T) {
	f := newDispatcherFixture(t, []string{NameMySQL, NameNginx}, nil)

	chain, err := f.dispatcher.ForServer(context.Background(), chainRecord())
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, NameBase, chain[0].Name())
	assert.Equal(t, NameMySQL, chain[1].Name())
	assert.Equal(t, NameNginx, chain[2].Name())
}

func TestForServerSkipsEmptyAndBase(t *testing.T) {
	f := newDispatcherFixture(t, nil, nil)

	farms := testhelper.NewMockFarmRepository()
	farms.Roles[5] = &farm.Role{ID: 5, Behaviors: []string{"", " ", NameBase}}
	f.dispatcher.deps.Farms = farms

	chain, err := f.dispatcher.ForServer(context.Background(), chainRecord())
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, NameBase, chain[0].Name())
}

func TestForServerUnknownBehavior(t *testing.T) {
	f := newDispatcherFixture(t, nil, nil)

	farms := testhelper.NewMockFarmRepository()
	farms.Roles[5] = &farm.Role{ID: 5, Behaviors: []string{"teleport"}}
	f.dispatcher.deps.Farms = farms

	_, err := f.dispatcher.ForServer(context.Background(), chainRecord())
	assert.ErrorContains(t, err, `unknown behavior "teleport"`)
}

func TestHandleMessageRunsFullChainOnFailure(t *testing.T) {
	boom := errors.New("boom")
	f := newDispatcherFixture(t, []string{NameMySQL, NameNginx}, map[string]error{NameMySQL: boom})

	msg := &agent.HostUpdate{Meta: agent.NewMeta()}
	err := f.dispatcher.HandleMessage(context.Background(), chainRecord(), msg)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{NameBase, NameMySQL, NameNginx}, f.handled)
}

func TestExtendMessageAbortsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	f := newDispatcherFixture(t, []string{NameMySQL, NameNginx}, map[string]error{NameMySQL: boom})

	msg := &agent.HostInitResponse{Meta: agent.NewMeta()}
	err := f.dispatcher.ExtendMessage(context.Background(), chainRecord(), msg)

	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "behavior mysql: extend HostInitResponse")
	assert.Equal(t, []string{NameBase, NameMySQL}, f.extended)
}

func TestFireContinuesPastFailure(t *testing.T) {
	f := newDispatcherFixture(t, []string{NameMySQL, NameNginx}, map[string]error{NameMySQL: errors.New("boom")})

	f.dispatcher.Fire(context.Background(), HookHostDown, chainRecord())
	assert.Equal(t, []string{NameBase, NameMySQL, NameNginx}, f.hooksFired)
}

func TestRegistryDuplicateAndNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, RegisterBuiltin(registry))

	assert.Error(t, registry.Register(NameBase, func(deps Deps) Behavior { return newGeneric(NameBase) }))

	names := registry.Names()
	assert.Len(t, names, 13)
	assert.Contains(t, names, NameBase)
	assert.Contains(t, names, NameRouter)
}
