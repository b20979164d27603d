package server

import (
	"strconv"
	"time"
)

// Status represents the lifecycle state of a server.
type Status string

const (
	StatusPendingLaunch    Status = "Pending launch"
	StatusPending          Status = "Pending"
	StatusInitializing     Status = "Initializing"
	StatusRunning          Status = "Running"
	StatusSuspended        Status = "Suspended"
	StatusPendingTerminate Status = "Pending terminate"
	StatusTerminated       Status = "Terminated"
	StatusImporting        Status = "Importing"
)

// Terminal reports whether the status cannot be left anymore.
func (s Status) Terminal() bool {
	return s == StatusTerminated
}

// Record represents one provisioned or provisioning virtual machine.
// The property bag holds everything that is metadata rather than identity:
// launch attribution, retry bookkeeping, agent settings, cost analytics tags.
type Record struct {
	ServerID      string `json:"server_id"`
	EnvID         int64  `json:"env_id"`
	AccountID     int64  `json:"account_id"`
	FarmID        int64  `json:"farm_id"`
	FarmRoleID    int64  `json:"farm_role_id"`
	RoleID        int64  `json:"role_id"`
	Platform      string `json:"platform"`
	CloudLocation string `json:"cloud_location"`
	ImageID       string `json:"image_id"`
	Index         int    `json:"index"`
	Status        Status `json:"status"`

	Properties map[Property]string `json:"properties"`

	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property returns the value of a bag key, empty string when unset.
func (r *Record) Property(p Property) string {
	if r.Properties == nil {
		return ""
	}
	return r.Properties[p]
}

// SetProperty writes a bag key.
func (r *Record) SetProperty(p Property, value string) {
	if r.Properties == nil {
		r.Properties = make(map[Property]string)
	}
	r.Properties[p] = value
}

// SetProperties writes several bag keys at once.
func (r *Record) SetProperties(props map[Property]string) {
	for p, v := range props {
		r.SetProperty(p, v)
	}
}

// LaunchAttempts returns the recorded launch attempt count.
func (r *Record) LaunchAttempts() int {
	n, err := strconv.Atoi(r.Property(PropLaunchAttempt))
	if err != nil {
		return 0
	}
	return n
}

// BumpLaunchAttempt increments the attempt counter and stamps the last-try
// timestamp. The counter only ever grows.
func (r *Record) BumpLaunchAttempt(now time.Time) {
	r.SetProperty(PropLaunchAttempt, strconv.Itoa(r.LaunchAttempts()+1))
	r.SetProperty(PropLaunchLastTry, now.UTC().Format(time.DateTime))
}

// LaunchError returns the stored launch error text, empty when none.
func (r *Record) LaunchError() string {
	return r.Property(PropLaunchError)
}

// AgentPort returns an agent port override from the bag, or def when unset.
func (r *Record) AgentPort(p Property, def int) int {
	n, err := strconv.Atoi(r.Property(p))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
