package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/usecase/launch"
)

type launchRequest struct {
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

	Delayed  bool  `json:"delayed"`
	ReasonID int   `json:"reason_id"`
	UserID   int64 `json:"user_id"`
}

// LaunchServer runs one launch cycle. An existing server_id continues that
// record; otherwise a new record is created from the request fields. The
// outcome is always the returned record's status and properties.
func (r *Router) LaunchServer(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	lr := launch.Request{
		Delayed: req.Delayed,
		UserID:  req.UserID,
	}
	if req.ReasonID != 0 {
		lr.Reason = &launch.Reason{ID: req.ReasonID}
	}

	if req.ServerID != "" {
		rec, err := r.servers.FindByID(c.Request.Context(), req.ServerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "server_not_found"})
			return
		}
		lr.Record = rec
	} else {
		if req.Platform == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "platform_required"})
			return
		}
		lr.Spec = &launch.Spec{
			EnvID:         req.EnvID,
			AccountID:     req.AccountID,
			FarmID:        req.FarmID,
			FarmRoleID:    req.FarmRoleID,
			RoleID:        req.RoleID,
			Platform:      req.Platform,
			CloudLocation: req.CloudLocation,
			ImageID:       req.ImageID,
			Index:         req.Index,
		}
	}

	rec, err := r.orchestrator.Launch(c.Request.Context(), lr)
	if err != nil && rec == nil {
		r.logger.Error("launch_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "launch_failed"})
		return
	}
	if err != nil {
		// Dispatch failure from a fired event; the record itself is valid.
		r.logger.Error("launch_dispatch_failed",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, serverResponse(rec))
}

func (r *Router) GetServer(c *gin.Context) {
	rec, err := r.servers.FindByID(c.Request.Context(), c.Param("serverID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "server_not_found"})
		return
	}
	c.JSON(http.StatusOK, serverResponse(rec))
}

func serverResponse(rec *server.Record) gin.H {
	return gin.H{
		"server_id":      rec.ServerID,
		"env_id":         rec.EnvID,
		"farm_id":        rec.FarmID,
		"farm_role_id":   rec.FarmRoleID,
		"role_id":        rec.RoleID,
		"platform":       rec.Platform,
		"cloud_location": rec.CloudLocation,
		"status":         rec.Status,
		"properties":     rec.Properties,
	}
}
