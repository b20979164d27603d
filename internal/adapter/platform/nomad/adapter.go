// Package nomad implements the platform client on a Nomad cluster. It is
// the development platform: a "server" is a Nomad job running the agent
// image, which exercises the full launch pipeline without a cloud account.
package nomad

import (
	"context"
	"fmt"

	"github.com/hashicorp/nomad/api"

	"github.com/rkreddybogati/scalr/internal/domain/platform"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

const (
	jobPrefix  = "scalr-srv"
	agentImage = "scalr/agent:latest"
)

type Adapter struct {
	client *api.Client
}

// New builds the adapter against NOMAD_ADDR / NOMAD_TOKEN from the
// environment, defaulting to localhost.
func New() (*Adapter, error) {
	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client}, nil
}

func (a *Adapter) LaunchServer(ctx context.Context, rec *server.Record) error {
	job := a.buildJob(rec)
	_, _, err := a.client.Jobs().RegisterOpts(job, nil, (&api.WriteOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register nomad job: %w", err)
	}
	return nil
}

// GetResumeStrategy reports how a suspended server comes back. Nomad jobs
// restart from scratch, so the agent must re-run its init sequence.
func (a *Adapter) GetResumeStrategy() platform.ResumeStrategy {
	return platform.ResumeStrategyInit
}

func (a *Adapter) buildJob(rec *server.Record) *api.Job {
	name := fmt.Sprintf("%s-%s", jobPrefix, rec.ServerID)
	job := api.NewServiceJob(name, name, "global", 50)
	job.Datacenters = []string{"dc1"}

	task := api.NewTask("agent", "docker")
	task.Config = map[string]interface{}{
		"image": agentImage,
	}
	task.Env = map[string]string{
		"SCALR_SERVER_ID": rec.ServerID,
		"SCALR_FARM_ID":   fmt.Sprintf("%d", rec.FarmID),
		"SCALR_AGENT_KEY": rec.Property(server.PropAgentKey),
	}
	task.Resources = &api.Resources{
		CPU:      intPtr(200),
		MemoryMB: intPtr(256),
	}

	group := api.NewTaskGroup("server", 1)
	group.AddTask(task)
	job.AddTaskGroup(group)
	return job
}

func intPtr(v int) *int { return &v }
