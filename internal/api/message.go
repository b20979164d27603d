package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
)

// HandleAgentMessage is the inbound entry point of the agent protocol. The
// message routes through the server's behavior chain, and the messages
// that mark a lifecycle transition additionally move the server's status
// and fire the matching event.
func (r *Router) HandleAgentMessage(c *gin.Context) {
	rec, err := r.servers.FindByID(c.Request.Context(), c.Param("serverID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "server_not_found"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
		return
	}
	msg, err := agent.Decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message"})
		return
	}

	ctx := c.Request.Context()
	if err := r.behaviors.HandleMessage(ctx, rec, msg); err != nil {
		r.logger.Error("agent_message_failed",
			zap.String("server_id", rec.ServerID),
			zap.String("message_type", msg.Type()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message_handling_failed"})
		return
	}

	if err := r.applyTransition(c, rec, msg); err != nil {
		r.logger.Error("agent_transition_failed",
			zap.String("server_id", rec.ServerID),
			zap.String("message_type", msg.Type()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transition_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "message_id": msg.GetMeta().ID})
}

func (r *Router) applyTransition(c *gin.Context, rec *server.Record, msg agent.Message) error {
	ctx := c.Request.Context()

	switch msg.(type) {
	case *agent.HostInit:
		rec.Status = server.StatusInitializing
		if err := r.servers.Save(ctx, rec); err != nil {
			return err
		}
		return r.events.FireEvent(ctx, rec.FarmID, event.NewHostInit(rec))
	case *agent.HostUp:
		if err := r.events.FireEvent(ctx, rec.FarmID, event.NewBeforeHostUp(rec)); err != nil {
			return err
		}
		rec.Status = server.StatusRunning
		if err := r.servers.Save(ctx, rec); err != nil {
			return err
		}
		return r.events.FireEvent(ctx, rec.FarmID, event.NewHostUp(rec))
	case *agent.HostDown:
		suspended := rec.Status == server.StatusSuspended
		if !suspended {
			rec.Status = server.StatusTerminated
			if err := r.servers.Save(ctx, rec); err != nil {
				return err
			}
		}
		ev := event.NewHostDown(rec)
		ev.Suspended = suspended
		return r.events.FireEvent(ctx, rec.FarmID, ev)
	default:
		return nil
	}
}
