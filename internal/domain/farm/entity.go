package farm

import (
	"context"
	"time"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Farm is a named collection of server roles managed as a unit.
type Farm struct {
	ID             int64     `json:"id"`
	EnvID          int64     `json:"env_id"`
	AccountID      int64     `json:"account_id"`
	Name           string    `json:"name"`
	CreatedByID    int64     `json:"created_by_id"`
	CreatedByEmail string    `json:"created_by_email"`
	ProjectID      string    `json:"project_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Role is a template for a kind of server, carrying behaviors and settings.
type Role struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Generation int        `json:"generation"`
	Behaviors  []string   `json:"behaviors"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Legacy reports whether the role belongs to the retired first generation
// that can no longer be launched.
func (r *Role) Legacy() bool {
	return r.Generation == 1
}

// FarmRole binds a role into a farm with per-farm settings.
type FarmRole struct {
	ID       int64             `json:"id"`
	FarmID   int64             `json:"farm_id"`
	RoleID   int64             `json:"role_id"`
	Alias    string            `json:"alias"`
	Settings map[string]string `json:"settings"`
}

// Setting returns a farm-role setting value, empty string when unset.
func (fr *FarmRole) Setting(key string) string {
	if fr.Settings == nil {
		return ""
	}
	return fr.Settings[key]
}

// Farm-role setting keys understood by the base behavior.
const (
	SettingHostnameFormat        = "base.hostname_format"
	SettingKeepScriptingLogsTime = "base.keep_scripting_logs_time"
	SettingAbortInitOnScriptFail = "base.abort_init_on_script_fail"
	SettingDisableFirewallMgmt   = "base.disable_firewall_management"
	SettingAPIPort               = "base.api_port"
	SettingMessagingPort         = "base.messaging_port"
	SettingUpdateRepository      = "base.upd.repository"
	SettingUpdateSchedule        = "base.upd.schedule"
	SettingInstanceTypeName      = "info.instance_type_name"
	SettingDeployApplicationID   = "dm.application_id"
	SettingDeployRemotePath      = "dm.remote_path"
)

// Repository resolves farm, role and farm-role entities.
type Repository interface {
	FarmByID(ctx context.Context, id int64) (*Farm, error)
	RoleByID(ctx context.Context, id int64) (*Role, error)
	FarmRoleByID(ctx context.Context, id int64) (*FarmRole, error)

	// TouchRoleLastUsed stamps the role's last-used timestamp.
	TouchRoleLastUsed(ctx context.Context, roleID int64, t time.Time) error
}

// Storage resolves and records the storage volumes of a farm role's servers.
type Storage interface {
	// VolumeConfigs returns the volume layout a server should carry.
	VolumeConfigs(ctx context.Context, record *server.Record, isHostInit bool) ([]server.VolumeConfig, error)

	// SetVolumes records volumes the agent reported as attached.
	SetVolumes(ctx context.Context, record *server.Record, volumes []server.VolumeConfig) error

	// Release marks a server's volumes as detached.
	Release(ctx context.Context, record *server.Record) error
}

// ProjectResolver resolves the owning cost center of an analytics project.
type ProjectResolver interface {
	CostCenterID(ctx context.Context, projectID string) (string, error)
}
