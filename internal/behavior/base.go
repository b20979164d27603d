package behavior

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/domain/platform"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/globalvar"
	"github.com/rkreddybogati/scalr/internal/governance"
)

// Fallbacks applied when neither the deployment config nor the farm role
// set a value.
const (
	defaultKeepScriptingLogsTime = 3600
	defaultAPIPort               = 8010
	defaultMessagingPort         = 8013
)

// DeploymentService creates deployment tasks for freshly initialized hosts.
type DeploymentService interface {
	// CreateTask registers a deployment of an application onto a server
	// and returns the task identifier the agent polls.
	CreateTask(ctx context.Context, rec *server.Record, applicationID int64, remotePath string) (string, error)
}

// Deps is the shared dependency set handed to every behavior constructor.
type Deps struct {
	Farms      farm.Repository
	Storage    farm.Storage
	Servers    server.Repository
	Platforms  *platform.Factory
	Governance governance.Policy
	Vars       globalvar.Resolver
	Deploy     DeploymentService
	Config     *config.Config
	Logger     *zap.Logger
}

// Base is the behavior present on every server regardless of role. It owns
// the generic agent configuration, volume bookkeeping and port
// reconciliation that all other behaviors build on.
type Base struct {
	deps   Deps
	logger *zap.Logger
}

func NewBase(deps Deps) *Base {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{deps: deps, logger: logger.Named("behavior.base")}
}

func (b *Base) Name() string { return NameBase }

func (b *Base) HandleMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	switch m := msg.(type) {
	case *agent.HostUpdate:
		return b.handleHostUpdate(ctx, rec, m)
	case *agent.HostUp:
		return b.handleHostUp(ctx, rec, m)
	default:
		return nil
	}
}

// handleHostUpdate reconciles the ports the agent actually listens on with
// what the control plane recorded at launch. A drifting port is not an
// error; the record follows the agent.
func (b *Base) handleHostUpdate(ctx context.Context, rec *server.Record, msg *agent.HostUpdate) error {
	if msg.Base == nil {
		return nil
	}

	changed := false
	if p := msg.Base.APIPort; p > 0 {
		if cur := rec.Property(server.PropAgentAPIPort); cur != strconv.Itoa(p) {
			b.logger.Warn("agent_api_port_changed",
				zap.String("server_id", rec.ServerID),
				zap.String("old", cur),
				zap.Int("new", p))
			rec.SetProperty(server.PropAgentAPIPort, strconv.Itoa(p))
			changed = true
		}
	}
	if p := msg.Base.MessagingPort; p > 0 {
		if cur := rec.Property(server.PropAgentMessagingPort); cur != strconv.Itoa(p) {
			b.logger.Warn("agent_messaging_port_changed",
				zap.String("server_id", rec.ServerID),
				zap.String("old", cur),
				zap.Int("new", p))
			rec.SetProperty(server.PropAgentMessagingPort, strconv.Itoa(p))
			changed = true
		}
	}
	if msg.Base.Hostname != "" && rec.Property(server.PropHostname) != msg.Base.Hostname {
		rec.SetProperty(server.PropHostname, msg.Base.Hostname)
		changed = true
	}

	if !changed {
		return nil
	}
	return b.deps.Servers.Save(ctx, rec)
}

// handleHostUp records the volume layout the agent settled on and the
// final hostname.
func (b *Base) handleHostUp(ctx context.Context, rec *server.Record, msg *agent.HostUp) error {
	if len(msg.Volumes) > 0 && b.deps.Storage != nil {
		if err := b.deps.Storage.SetVolumes(ctx, rec, msg.Volumes); err != nil {
			return fmt.Errorf("save volume configuration: %w", err)
		}
	}
	if msg.Base != nil && msg.Base.Hostname != "" {
		rec.SetProperty(server.PropHostname, msg.Base.Hostname)
		if err := b.deps.Servers.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) ExtendMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	if msg.GetMeta().HandledBy(b.Name()) {
		return nil
	}

	switch m := msg.(type) {
	case *agent.HostInitResponse:
		if err := b.extendHostInitResponse(ctx, rec, m); err != nil {
			return err
		}
	case *agent.BeforeHostTerminate:
		b.attachVolumes(ctx, rec, &m.Volumes, false)
	}

	msg.GetMeta().MarkHandled(b.Name())
	return nil
}

func (b *Base) extendHostInitResponse(ctx context.Context, rec *server.Record, msg *agent.HostInitResponse) error {
	cfg, err := b.BuildBaseConfiguration(ctx, rec)
	if err != nil {
		return err
	}
	msg.Base = cfg

	b.attachVolumes(ctx, rec, &msg.Volumes, true)

	if b.deps.Deploy != nil {
		if err := b.attachDeploy(ctx, rec, msg); err != nil {
			b.logger.Warn("cannot_create_deploy_task",
				zap.String("server_id", rec.ServerID),
				zap.Error(err))
		}
	}
	return nil
}

// attachVolumes resolves the volume configuration for the server. Storage
// failures never block the message; the agent simply gets no volumes.
func (b *Base) attachVolumes(ctx context.Context, rec *server.Record, dst *[]server.VolumeConfig, isHostInit bool) {
	if b.deps.Storage == nil {
		return
	}
	volumes, err := b.deps.Storage.VolumeConfigs(ctx, rec, isHostInit)
	if err != nil {
		b.logger.Warn("cannot_resolve_volumes",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
		return
	}
	*dst = volumes
}

func (b *Base) attachDeploy(ctx context.Context, rec *server.Record, msg *agent.HostInitResponse) error {
	role, err := b.deps.Farms.FarmRoleByID(ctx, rec.FarmRoleID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseInt(role.Setting(farm.SettingDeployApplicationID), 10, 64)
	if err != nil || appID == 0 {
		return nil
	}
	taskID, err := b.deps.Deploy.CreateTask(ctx, rec, appID, role.Setting(farm.SettingDeployRemotePath))
	if err != nil {
		return err
	}
	msg.Deploy = &agent.DeployInfo{
		TaskID:        taskID,
		ApplicationID: appID,
		RemotePath:    role.Setting(farm.SettingDeployRemotePath),
	}
	return nil
}

// BuildBaseConfiguration assembles the generic agent configuration for a
// server from its farm role settings, governance policy and platform
// capabilities.
func (b *Base) BuildBaseConfiguration(ctx context.Context, rec *server.Record) (*agent.BaseConfig, error) {
	role, err := b.deps.Farms.FarmRoleByID(ctx, rec.FarmRoleID)
	if err != nil {
		return nil, fmt.Errorf("load farm role %d: %w", rec.FarmRoleID, err)
	}

	cfg := &agent.BaseConfig{
		KeepScriptingLogsTime:     defaultKeepScriptingLogsTime,
		AbortInitOnScriptFail:     role.Setting(farm.SettingAbortInitOnScriptFail) == "1",
		DisableFirewallManagement: role.Setting(farm.SettingDisableFirewallMgmt) == "1",
		APIPort:                   defaultAPIPort,
		MessagingPort:             defaultMessagingPort,
	}
	if c := b.deps.Config; c != nil {
		if c.AgentAPIPort > 0 {
			cfg.APIPort = c.AgentAPIPort
		}
		if c.AgentMessagingPort > 0 {
			cfg.MessagingPort = c.AgentMessagingPort
		}
	}

	if v, err := strconv.Atoi(role.Setting(farm.SettingKeepScriptingLogsTime)); err == nil && v > 0 {
		cfg.KeepScriptingLogsTime = v
	}
	if v, err := strconv.Atoi(role.Setting(farm.SettingAPIPort)); err == nil && v > 0 {
		cfg.APIPort = v
	}
	if v, err := strconv.Atoi(role.Setting(farm.SettingMessagingPort)); err == nil && v > 0 {
		cfg.MessagingPort = v
	}

	cfg.Hostname = b.hostname(ctx, rec, role)

	if client, err := b.deps.Platforms.Client(rec.Platform); err == nil {
		cfg.ResumeStrategy = string(client.GetResumeStrategy())
	} else {
		cfg.ResumeStrategy = string(platform.ResumeStrategyNotSupported)
	}

	if repo := role.Setting(farm.SettingUpdateRepository); repo != "" {
		cfg.Update = map[string]string{"repository": repo}
		if sched := role.Setting(farm.SettingUpdateSchedule); sched != "" {
			cfg.Update["schedule"] = sched
		}
	}

	return cfg, nil
}

// hostname resolves the hostname format for the server. A governance
// enforced format wins over the farm role setting; variable lookup
// failures degrade to an uninterpolated format rather than failing the
// whole configuration.
func (b *Base) hostname(ctx context.Context, rec *server.Record, role *farm.FarmRole) string {
	format := role.Setting(farm.SettingHostnameFormat)
	if b.deps.Governance != nil {
		if v, enforced, err := b.deps.Governance.Value(ctx, rec.EnvID,
			governance.CategoryGeneral, governance.GeneralHostnameFormat); err == nil && enforced && v != "" {
			format = v
		}
	}
	if format == "" {
		return ""
	}
	if b.deps.Vars == nil {
		return format
	}
	vars, err := b.deps.Vars.List(ctx, rec)
	if err != nil {
		b.logger.Warn("cannot_resolve_variables_for_hostname",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
		return format
	}
	return globalvar.Interpolate(format, vars)
}

func (b *Base) OnBeforeInstanceLaunch(ctx context.Context, rec *server.Record) error {
	return nil
}

func (b *Base) OnBeforeHostTerminate(ctx context.Context, rec *server.Record) error {
	return nil
}

// OnHostDown releases the storage held by the server so replacement
// instances can reclaim it.
func (b *Base) OnHostDown(ctx context.Context, rec *server.Record) error {
	if b.deps.Storage == nil {
		return nil
	}
	if err := b.deps.Storage.Release(ctx, rec); err != nil {
		b.logger.Warn("cannot_release_storage",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
	}
	return nil
}
