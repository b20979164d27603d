package testhelper

import (
	"context"
	"fmt"
	"time"

	"github.com/rkreddybogati/scalr/internal/domain/account"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/domain/platform"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/globalvar"
)

// MockPlatformClient is an in-memory platform.Client that records launch
// calls and can be forced to fail.
type MockPlatformClient struct {
	LaunchErr      error
	LaunchCalls    int
	Launched       []*server.Record
	ResumeStrategy platform.ResumeStrategy
}

func (m *MockPlatformClient) LaunchServer(ctx context.Context, rec *server.Record) error {
	m.LaunchCalls++
	if m.LaunchErr != nil {
		return m.LaunchErr
	}
	m.Launched = append(m.Launched, rec)
	return nil
}

func (m *MockPlatformClient) GetResumeStrategy() platform.ResumeStrategy {
	if m.ResumeStrategy == "" {
		return platform.ResumeStrategyNotSupported
	}
	return m.ResumeStrategy
}

// MockServerRepository keeps records in a map.
type MockServerRepository struct {
	Records  map[string]*server.Record
	Pending  int64
	SaveErr  error
	CountErr error
}

func NewMockServerRepository() *MockServerRepository {
	return &MockServerRepository{Records: make(map[string]*server.Record)}
}

func (m *MockServerRepository) FindByID(ctx context.Context, serverID string) (*server.Record, error) {
	rec, ok := m.Records[serverID]
	if !ok {
		return nil, fmt.Errorf("server %s not found", serverID)
	}
	return rec, nil
}

func (m *MockServerRepository) Save(ctx context.Context, rec *server.Record) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Records[rec.ServerID] = rec
	return nil
}

func (m *MockServerRepository) CountPending(ctx context.Context, platform string, excludeServerID string) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return m.Pending, nil
}

func (m *MockServerRepository) ListByStatus(ctx context.Context, statuses []server.Status, limit int) ([]*server.Record, error) {
	var out []*server.Record
	for _, rec := range m.Records {
		for _, status := range statuses {
			if rec.Status == status {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// MockFarmRepository serves fixed farm, role and farm-role entities.
type MockFarmRepository struct {
	Farms     map[int64]*farm.Farm
	Roles     map[int64]*farm.Role
	FarmRoles map[int64]*farm.FarmRole
	Touched   []int64
}

func NewMockFarmRepository() *MockFarmRepository {
	return &MockFarmRepository{
		Farms:     make(map[int64]*farm.Farm),
		Roles:     make(map[int64]*farm.Role),
		FarmRoles: make(map[int64]*farm.FarmRole),
	}
}

func (m *MockFarmRepository) FarmByID(ctx context.Context, id int64) (*farm.Farm, error) {
	f, ok := m.Farms[id]
	if !ok {
		return nil, fmt.Errorf("farm %d not found", id)
	}
	return f, nil
}

func (m *MockFarmRepository) RoleByID(ctx context.Context, id int64) (*farm.Role, error) {
	r, ok := m.Roles[id]
	if !ok {
		return nil, fmt.Errorf("role %d not found", id)
	}
	return r, nil
}

func (m *MockFarmRepository) FarmRoleByID(ctx context.Context, id int64) (*farm.FarmRole, error) {
	fr, ok := m.FarmRoles[id]
	if !ok {
		return nil, fmt.Errorf("farm role %d not found", id)
	}
	return fr, nil
}

func (m *MockFarmRepository) TouchRoleLastUsed(ctx context.Context, roleID int64, t time.Time) error {
	m.Touched = append(m.Touched, roleID)
	return nil
}

// MockAccountRepository serves one account with a fixed active count.
type MockAccountRepository struct {
	Account *account.Account
	Active  int64
}

func (m *MockAccountRepository) ByID(ctx context.Context, id int64) (*account.Account, error) {
	if m.Account == nil {
		return nil, fmt.Errorf("account %d not found", id)
	}
	return m.Account, nil
}

func (m *MockAccountRepository) ActiveServerCount(ctx context.Context, accountID int64) (int64, error) {
	return m.Active, nil
}

// MockVarResolver serves a fixed variable list.
type MockVarResolver struct {
	Vars []globalvar.Variable
	Err  error
}

func (m *MockVarResolver) List(ctx context.Context, rec *server.Record) ([]globalvar.Variable, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vars, nil
}

// MockStorage serves fixed volume configs and records calls.
type MockStorage struct {
	Volumes   []server.VolumeConfig
	VolErr    error
	SetCalls  [][]server.VolumeConfig
	Released  []string
}

func (m *MockStorage) VolumeConfigs(ctx context.Context, rec *server.Record, isHostInit bool) ([]server.VolumeConfig, error) {
	if m.VolErr != nil {
		return nil, m.VolErr
	}
	return m.Volumes, nil
}

func (m *MockStorage) SetVolumes(ctx context.Context, rec *server.Record, volumes []server.VolumeConfig) error {
	m.SetCalls = append(m.SetCalls, volumes)
	return nil
}

func (m *MockStorage) Release(ctx context.Context, rec *server.Record) error {
	m.Released = append(m.Released, rec.ServerID)
	return nil
}
