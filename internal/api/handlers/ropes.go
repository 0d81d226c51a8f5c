package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/rope"
	"github.com/cableworks/backend/internal/sim"
	"github.com/cableworks/backend/internal/store"
)

// CreateRopeRequest creates a rope from an inline config, a stored
// preset, or the defaults. Inline config fields win over the preset.
type CreateRopeRequest struct {
	Name   string       `json:"name"`
	Preset string       `json:"preset,omitempty"`
	Config *rope.Config `json:"config,omitempty"`
}

// ListRopes returns all live simulations
func ListRopes(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ropes": mgr.List()})
	}
}

// CreateRope spins up a new rope instance
func CreateRope(mgr *sim.Manager, presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRopeRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		cfg := rope.DefaultConfig()
		if req.Preset != "" {
			if presets == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presets not available (no database configured)"})
				return
			}
			p, err := presets.GetByName(strings.TrimSpace(req.Preset))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
					return
				}
				log.Printf("[API] preset lookup failed: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			cfg, err = p.RopeConfig()
			if err != nil {
				log.Printf("[API] %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "preset config invalid"})
				return
			}
		}
		if req.Config != nil {
			cfg = *req.Config
		}

		if cfg.SegmentCount < 1 || cfg.SegmentLength <= 0 || cfg.TotalMass <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "segment_count, segment_length and total_mass must be positive"})
			return
		}

		info, err := mgr.CreateRope(req.Name, cfg)
		if err != nil {
			if errors.Is(err, sim.ErrTooManyRopes) {
				c.JSON(http.StatusConflict, gin.H{"error": "rope limit reached"})
				return
			}
			log.Printf("[API] create rope failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, info)
	}
}

// GetRope returns the current snapshot of one rope
func GetRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := mgr.Snapshot(c.Param("id"))
		if err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// DeleteRope tears down an instance
func DeleteRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.DeleteRope(c.Param("id")); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// ApplyForce pushes a transient force onto a segment (-1 for the whole rope)
func ApplyForce(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Force    rope.Vec3 `json:"force"`
			Segment  *int      `json:"segment"`
			Duration float64   `json:"duration"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		segment := -1
		if req.Segment != nil {
			segment = *req.Segment
		}

		if err := mgr.ApplyForce(c.Param("id"), req.Force, segment, req.Duration); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": true})
	}
}

// GrabRope pins the segment nearest to a world position
func GrabRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Position rope.Vec3 `json:"position"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		index, err := mgr.Grab(c.Param("id"), req.Position)
		if err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"segment": index})
	}
}

// MoveGrab drags the currently grabbed segment
func MoveGrab(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Position rope.Vec3 `json:"position"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := mgr.MoveGrab(c.Param("id"), req.Position); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"moved": true})
	}
}

// ReleaseRope lets go of the grabbed segment
func ReleaseRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.Release(c.Param("id")); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"released": true})
	}
}

// CutRope severs the rope just before a segment
func CutRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Segment int `json:"segment"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := mgr.Cut(c.Param("id"), req.Segment); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cut": true})
	}
}

// ResetRope restores the rest pose
func ResetRope(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.ResetRope(c.Param("id")); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reset": true})
	}
}

// MoveAnchor attaches or moves the anchor at one end of the rope
func MoveAnchor(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		end, ok := ropeEndParam(c)
		if !ok {
			return
		}

		var req struct {
			Position rope.Vec3 `json:"position"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := mgr.AttachAnchor(c.Param("id"), end, req.Position); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attached": true})
	}
}

// DetachAnchor frees one end of the rope
func DetachAnchor(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		end, ok := ropeEndParam(c)
		if !ok {
			return
		}

		if err := mgr.DetachAnchor(c.Param("id"), end); err != nil {
			respondSimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"detached": true})
	}
}
