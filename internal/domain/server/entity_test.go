package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBumpLaunchAttemptMonotonic(t *testing.T) {
	rec := &Record{ServerID: "srv-1"}
	assert.Zero(t, rec.LaunchAttempts())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		rec.BumpLaunchAttempt(now)
		assert.Equal(t, i, rec.LaunchAttempts())
	}
	assert.Equal(t, "2024-05-01 12:00:00", rec.Property(PropLaunchLastTry))
}

func TestLaunchAttemptsGarbageResetsToZero(t *testing.T) {
	rec := &Record{ServerID: "srv-1"}
	rec.SetProperty(PropLaunchAttempt, "not-a-number")
	assert.Zero(t, rec.LaunchAttempts())

	rec.BumpLaunchAttempt(time.Now())
	assert.Equal(t, 1, rec.LaunchAttempts())
}

func TestPropertyBag(t *testing.T) {
	rec := &Record{}
	assert.Empty(t, rec.Property(PropLaunchError))

	rec.SetProperty(PropLaunchError, "no capacity")
	assert.Equal(t, "no capacity", rec.LaunchError())

	rec.SetProperties(map[Property]string{
		PropAgentAPIPort:       "9010",
		PropAgentMessagingPort: "9013",
	})
	assert.Equal(t, 9010, rec.AgentPort(PropAgentAPIPort, 8010))
	assert.Equal(t, 8013, rec.AgentPort(PropHostname, 8013))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusTerminated.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusPendingTerminate.Terminal())
}
