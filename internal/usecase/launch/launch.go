package launch

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/account"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/domain/platform"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
	"github.com/rkreddybogati/scalr/pkg/crypto"
)

// legacyRoleError is the fixed text recorded when launching a retired
// first-generation role is refused.
const legacyRoleError = "ami-scripts servers no longer supported"

// agentKeyLength is the byte length of the one-time agent shared secret.
const agentKeyLength = 40

// Spec describes a server to create when the caller has no record yet.
type Spec struct {
	EnvID         int64
	AccountID     int64
	FarmID        int64
	FarmRoleID    int64
	RoleID        int64
	Platform      string
	CloudLocation string
	ImageID       string
	Index         int
}

// Request is one launch invocation. Exactly one of Spec or Record is used:
// a non-nil Record continues an existing server, otherwise a record is
// created from Spec.
type Request struct {
	Spec   *Spec
	Record *server.Record

	// Delayed defers the platform call: the record parks in pending-launch
	// until a scheduler picks it up.
	Delayed bool

	// Reason explains why the launch was requested, recorded for audit.
	Reason *Reason

	// User attributes the launch. UserID is resolved when User is nil.
	User   *account.User
	UserID int64
}

// EventBus is the slice of the event pipeline the orchestrator fires into.
type EventBus interface {
	FireEvent(ctx context.Context, farmID int64, ev *event.Event) error
}

// HistoryRecorder appends launch-history entries, best effort.
type HistoryRecorder interface {
	RecordLaunch(ctx context.Context, rec *server.Record) error
}

// ImageCatalog stamps usage on image entities, best effort.
type ImageCatalog interface {
	TouchLastUsed(ctx context.Context, imageID string, envID int64, t time.Time) error
}

// Deps is the orchestrator's collaborator set.
type Deps struct {
	Servers   server.Repository
	Farms     farm.Repository
	Accounts  account.Repository
	Users     account.UserResolver
	Projects  farm.ProjectResolver
	Platforms *platform.Factory
	Events    EventBus
	History   HistoryRecorder
	Images    ImageCatalog
	Config    *config.Config
	Logger    *zap.Logger
}

// Orchestrator drives the server launch state machine:
// pending-launch to pending to running, with throttling and retry
// bookkeeping in between.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		deps:   deps,
		logger: logger.Named("launch"),
		now:    time.Now,
	}
}

// Launch runs one launch cycle for a server. It always returns a record;
// callers observe the outcome through its status and property bag. The
// error return carries only dispatch failures from fired events, never
// launch-path failures, which are folded into the record's state.
func (o *Orchestrator) Launch(ctx context.Context, req Request) (*server.Record, error) {
	user := o.resolveUser(ctx, req)

	rec := req.Record
	if rec == nil {
		var err error
		rec, err = o.createRecord(req.Spec)
		if err != nil {
			return nil, err
		}
	}

	o.attribute(rec, user)
	o.enrichMetadata(ctx, rec)

	if req.Delayed {
		rec.Status = server.StatusPendingLaunch
		o.stampReason(rec, req.Reason)
		if err := o.deps.Servers.Save(ctx, rec); err != nil {
			return rec, err
		}
		return rec, nil
	}

	if o.refuseLegacyRole(ctx, rec) {
		rec.Status = server.StatusPendingLaunch
		rec.SetProperty(server.PropLaunchError, legacyRoleError)
		rec.BumpLaunchAttempt(o.now())
		if err := o.deps.Servers.Save(ctx, rec); err != nil {
			return rec, err
		}
		return rec, nil
	}

	if o.throttled(ctx, rec) {
		rec.Status = server.StatusPendingLaunch
		rec.BumpLaunchAttempt(o.now())
		if err := o.deps.Servers.Save(ctx, rec); err != nil {
			return rec, err
		}
		return rec, nil
	}

	hadError := rec.LaunchError() != ""

	if err := o.callPlatform(ctx, rec); err != nil {
		rec.Status = server.StatusPendingLaunch
		rec.SetProperty(server.PropLaunchError, err.Error())
		rec.BumpLaunchAttempt(o.now())
		if saveErr := o.deps.Servers.Save(ctx, rec); saveErr != nil {
			o.logger.Error("cannot_save_server",
				zap.String("server_id", rec.ServerID),
				zap.Error(saveErr))
		}
		if !hadError {
			// Only the first failure fires the event; repeats of a still
			// failing launch stay quiet until the error clears.
			if fireErr := o.deps.Events.FireEvent(ctx, rec.FarmID,
				event.NewInstanceLaunchFailed(rec, err.Error())); fireErr != nil {
				return rec, fireErr
			}
		}
		return rec, nil
	}

	rec.Status = server.StatusPending
	if err := o.deps.Servers.Save(ctx, rec); err != nil {
		return rec, err
	}
	o.recordSuccess(ctx, rec)

	if err := o.deps.Events.FireEvent(ctx, rec.FarmID, event.NewBeforeInstanceLaunch(rec)); err != nil {
		return rec, err
	}
	if rec.LaunchError() != "" {
		delete(rec.Properties, server.PropLaunchError)
		if err := o.deps.Servers.Save(ctx, rec); err != nil {
			o.logger.Error("cannot_clear_launch_error",
				zap.String("server_id", rec.ServerID),
				zap.Error(err))
		}
	}
	return rec, nil
}

// resolveUser fills in the user identity when only an ID was given.
// Resolution failures are swallowed: the launch proceeds unattributed.
func (o *Orchestrator) resolveUser(ctx context.Context, req Request) *account.User {
	if req.User != nil {
		return req.User
	}
	if req.UserID == 0 || o.deps.Users == nil {
		return nil
	}
	user, err := o.deps.Users.ByID(ctx, req.UserID)
	if err != nil {
		o.logger.Warn("cannot_resolve_user",
			zap.Int64("user_id", req.UserID),
			zap.Error(err))
		return nil
	}
	return user
}

func (o *Orchestrator) createRecord(spec *Spec) (*server.Record, error) {
	if spec == nil {
		return nil, fmt.Errorf("launch: neither record nor spec given")
	}
	key, err := crypto.GenerateKey(agentKeyLength)
	if err != nil {
		return nil, fmt.Errorf("generate agent key: %w", err)
	}
	now := o.now().UTC()
	rec := &server.Record{
		ServerID:      ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		EnvID:         spec.EnvID,
		AccountID:     spec.AccountID,
		FarmID:        spec.FarmID,
		FarmRoleID:    spec.FarmRoleID,
		RoleID:        spec.RoleID,
		Platform:      spec.Platform,
		CloudLocation: spec.CloudLocation,
		ImageID:       spec.ImageID,
		Index:         spec.Index,
		Status:        server.StatusPendingLaunch,
		AddedAt:       now,
	}
	rec.SetProperty(server.PropAgentKey, key)
	rec.SetProperty(server.PropAgentKeyType, server.AgentKeyOneTime)
	return rec, nil
}

func (o *Orchestrator) attribute(rec *server.Record, user *account.User) {
	if user == nil {
		return
	}
	rec.SetProperty(server.PropLaunchedByID, strconv.FormatInt(user.ID, 10))
	rec.SetProperty(server.PropLaunchedByEmail, user.Email)
}

// enrichMetadata copies farm and role metadata needed downstream by cost
// analytics onto the record. Every lookup is best effort.
func (o *Orchestrator) enrichMetadata(ctx context.Context, rec *server.Record) {
	if rec.FarmRoleID != 0 {
		rec.SetProperty(server.PropFarmRoleID, strconv.FormatInt(rec.FarmRoleID, 10))
	}
	if rec.RoleID != 0 {
		rec.SetProperty(server.PropRoleID, strconv.FormatInt(rec.RoleID, 10))
	}
	if rec.FarmID == 0 || o.deps.Farms == nil {
		return
	}

	f, err := o.deps.Farms.FarmByID(ctx, rec.FarmID)
	if err != nil {
		o.logger.Debug("cannot_resolve_farm",
			zap.Int64("farm_id", rec.FarmID),
			zap.Error(err))
		return
	}
	rec.SetProperty(server.PropFarmCreatedByID, strconv.FormatInt(f.CreatedByID, 10))
	rec.SetProperty(server.PropFarmCreatedByEmail, f.CreatedByEmail)
	if f.ProjectID != "" {
		rec.SetProperty(server.PropFarmProjectID, f.ProjectID)
		if o.deps.Projects != nil {
			if ccID, err := o.deps.Projects.CostCenterID(ctx, f.ProjectID); err == nil && ccID != "" {
				rec.SetProperty(server.PropEnvCostCenterID, ccID)
			}
		}
	}

	if rec.FarmRoleID != 0 {
		if fr, err := o.deps.Farms.FarmRoleByID(ctx, rec.FarmRoleID); err == nil {
			if name := fr.Setting(farm.SettingInstanceTypeName); name != "" {
				rec.SetProperty(server.PropInstanceTypeName, name)
			}
		}
	}
}

func (o *Orchestrator) stampReason(rec *server.Record, reason *Reason) {
	if reason == nil {
		return
	}
	rec.SetProperty(server.PropLaunchReason, reason.Format())
	rec.SetProperty(server.PropLaunchReasonID, strconv.Itoa(reason.ID))
}

// refuseLegacyRole reports whether the record's role belongs to the
// retired first generation. Lookup failures do not refuse the launch.
func (o *Orchestrator) refuseLegacyRole(ctx context.Context, rec *server.Record) bool {
	if rec.RoleID == 0 || o.deps.Farms == nil {
		return false
	}
	role, err := o.deps.Farms.RoleByID(ctx, rec.RoleID)
	if err != nil {
		o.logger.Debug("cannot_resolve_role",
			zap.Int64("role_id", rec.RoleID),
			zap.Error(err))
		return false
	}
	if role.Legacy() {
		o.logger.Warn("legacy_role_launch_refused",
			zap.String("server_id", rec.ServerID),
			zap.Int64("role_id", rec.RoleID))
		return true
	}
	return false
}

// throttled applies the per-platform pending-server cap. The count is a
// plain read with no transactional guard; the cap is a soft throttle, and
// a counting failure lets the launch through rather than wedging it.
func (o *Orchestrator) throttled(ctx context.Context, rec *server.Record) bool {
	limit, ok := o.deps.Config.PendingServersLimit(rec.Platform)
	if !ok {
		return false
	}
	pending, err := o.deps.Servers.CountPending(ctx, rec.Platform, rec.ServerID)
	if err != nil {
		o.logger.Warn("cannot_count_pending_servers",
			zap.String("platform", rec.Platform),
			zap.Error(err))
		return false
	}
	if pending >= int64(limit) {
		o.logger.Warn("pending_servers_limit_reached",
			zap.String("platform", rec.Platform),
			zap.Int64("pending", pending),
			zap.Int("limit", limit),
			zap.String("server_id", rec.ServerID))
		return true
	}
	return false
}

// callPlatform runs the quota check and the platform launch call. Both
// failure modes feed the same retry bookkeeping.
func (o *Orchestrator) callPlatform(ctx context.Context, rec *server.Record) error {
	if o.deps.Accounts != nil && rec.AccountID != 0 {
		acct, err := o.deps.Accounts.ByID(ctx, rec.AccountID)
		if err != nil {
			return fmt.Errorf("resolve account %d: %w", rec.AccountID, err)
		}
		current, err := o.deps.Accounts.ActiveServerCount(ctx, rec.AccountID)
		if err != nil {
			return fmt.Errorf("count account servers: %w", err)
		}
		if err := acct.ValidateServerQuota(current, 1); err != nil {
			return err
		}
	}

	client, err := o.deps.Platforms.Client(rec.Platform)
	if err != nil {
		return err
	}
	return client.LaunchServer(ctx, rec)
}

// recordSuccess stamps launch history and last-used markers. All of it is
// best effort; a failed stamp only logs.
func (o *Orchestrator) recordSuccess(ctx context.Context, rec *server.Record) {
	now := o.now().UTC()
	if o.deps.History != nil {
		if err := o.deps.History.RecordLaunch(ctx, rec); err != nil {
			o.logger.Warn("cannot_record_launch_history",
				zap.String("server_id", rec.ServerID),
				zap.Error(err))
		}
	}
	if o.deps.Images != nil && rec.ImageID != "" {
		if err := o.deps.Images.TouchLastUsed(ctx, rec.ImageID, rec.EnvID, now); err != nil {
			o.logger.Warn("cannot_touch_image",
				zap.String("image_id", rec.ImageID),
				zap.Error(err))
		}
	}
	if o.deps.Farms != nil && rec.RoleID != 0 {
		if err := o.deps.Farms.TouchRoleLastUsed(ctx, rec.RoleID, now); err != nil {
			o.logger.Warn("cannot_touch_role",
				zap.Int64("role_id", rec.RoleID),
				zap.Error(err))
		}
	}
}
