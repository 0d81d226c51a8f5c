package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/rope"
	"github.com/cableworks/backend/internal/store"
)

// requirePresets guards the preset endpoints when no database is
// configured.
func requirePresets(c *gin.Context, presets *store.PresetStore) bool {
	if presets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presets not available (no database configured)"})
		return false
	}
	return true
}

// ListPresets returns all stored rope configurations
func ListPresets(presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePresets(c, presets) {
			return
		}

		list, err := presets.List()
		if err != nil {
			log.Printf("[API] list presets failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"presets": list})
	}
}

// GetPreset fetches one preset by numeric ID
func GetPreset(presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePresets(c, presets) {
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preset id"})
			return
		}

		p, err := presets.Get(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
				return
			}
			log.Printf("[API] get preset failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// CreatePreset stores a named rope configuration
func CreatePreset(presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePresets(c, presets) {
			return
		}

		var req struct {
			Name        string      `json:"name"`
			Description string      `json:"description"`
			Config      rope.Config `json:"config"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}
		if req.Config.SegmentCount < 1 || req.Config.SegmentLength <= 0 || req.Config.TotalMass <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "segment_count, segment_length and total_mass must be positive"})
			return
		}

		p, err := presets.Create(name, req.Description, req.Config)
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				c.JSON(http.StatusConflict, gin.H{"error": "preset name already exists"})
				return
			}
			log.Printf("[API] create preset failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// UpdatePreset replaces a preset's description and config
func UpdatePreset(presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePresets(c, presets) {
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preset id"})
			return
		}

		var req struct {
			Description string      `json:"description"`
			Config      rope.Config `json:"config"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Config.SegmentCount < 1 || req.Config.SegmentLength <= 0 || req.Config.TotalMass <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "segment_count, segment_length and total_mass must be positive"})
			return
		}

		p, err := presets.Update(id, req.Description, req.Config)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
				return
			}
			log.Printf("[API] update preset failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// DeletePreset removes a stored configuration
func DeletePreset(presets *store.PresetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requirePresets(c, presets) {
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preset id"})
			return
		}

		if err := presets.Delete(id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
				return
			}
			log.Printf("[API] delete preset failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
