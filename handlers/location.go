package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"farmsetu/services"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	locations *services.LocationService
	log       *slog.Logger
}

func NewLocationHandler(locations *services.LocationService, log *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, log: log}
}

func (h *LocationHandler) States(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.list(c)(h.locations.States(ctx))
}

func (h *LocationHandler) Districts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.list(c)(h.locations.Districts(ctx, c.Param("state")))
}

func (h *LocationHandler) Talukos(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.list(c)(h.locations.Talukos(ctx, c.Param("state"), c.Param("district")))
}

func (h *LocationHandler) list(c *gin.Context) func([]string, error) {
	return func(values []string, err error) {
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": values})
	}
}

func (h *LocationHandler) Villages(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	villages, err := h.locations.Villages(ctx, c.Param("state"), c.Param("district"), c.Param("taluko"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(villages), "data": villages})
}

func (h *LocationHandler) VillagesOfDistrict(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	villages, err := h.locations.VillagesOfDistrict(ctx, c.Param("state"), c.Param("district"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(villages), "data": villages})
}

func (h *LocationHandler) Pincode(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	info, err := h.locations.ByPincode(ctx, c.Param("pincode"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", info)
}

func (h *LocationHandler) Reverse(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.locations.Reverse(ctx, c.Query("lat"), c.Query("lng"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", result)
}
