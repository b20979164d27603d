package server

// Property is a closed key for the server metadata bag. Keeping the keys as
// a fixed enum gives compile-time checking of reads and writes while the
// values stay free-form strings.
type Property string

const (
	// Launch attribution.
	PropLaunchedByID    Property = "launched_by_id"
	PropLaunchedByEmail Property = "launched_by_email"

	// Launch retry bookkeeping.
	PropLaunchError    Property = "launch.error"
	PropLaunchAttempt  Property = "launch.attempt"
	PropLaunchLastTry  Property = "launch.last_try"
	PropLaunchReason   Property = "launch.reason"
	PropLaunchReasonID Property = "launch.reason_id"

	// Cost analytics metadata inherited from the farm/role at launch time.
	PropFarmRoleID         Property = "farm.role_id"
	PropRoleID             Property = "role_id"
	PropFarmCreatedByID    Property = "farm.created_by_id"
	PropFarmCreatedByEmail Property = "farm.created_by_email"
	PropFarmProjectID      Property = "farm.project_id"
	PropEnvCostCenterID    Property = "env.cc_id"
	PropInstanceTypeName   Property = "info.instance_type_name"

	// Agent settings.
	PropAgentKey           Property = "agent.key"
	PropAgentKeyType       Property = "agent.key_type"
	PropAgentAPIPort       Property = "agent.api_port"
	PropAgentMessagingPort Property = "agent.messaging_port"
	PropHostname           Property = "base.hostname"
)

// AgentKeyOneTime marks a freshly generated shared secret that the agent
// must rotate on first use.
const AgentKeyOneTime = "one-time"
