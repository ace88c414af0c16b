package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"farmsetu/middleware"
	"farmsetu/services"
	"farmsetu/upload"

	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	listings *services.ListingService
	receiver *upload.Receiver
	log      *slog.Logger
}

func NewListingHandler(listings *services.ListingService, receiver *upload.Receiver, log *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, receiver: receiver, log: log}
}

// Create accepts multipart, JSON or urlencoded bodies. Files stored for a
// rejected request are removed again.
func (h *ListingHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	form, err := h.receiver.Receive(c.Request, upload.ListingPolicy)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	listing, err := h.listings.Create(ctx, services.CreateListingInput{
		Owner:  user,
		Fields: form.Fields,
		Files:  form.Uploaded(),
	})
	if err != nil {
		h.receiver.Discard(context.WithoutCancel(c.Request.Context()), form.Files)
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, "Listing created successfully", gin.H{"listing": listing})
}

func (h *ListingHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	listings, err := h.listings.ListVisible(ctx, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(listings), "data": listings})
}

func (h *ListingHandler) Mine(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	listings, err := h.listings.ListMine(ctx, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(listings), "data": listings})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ListingHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide a status (active or inactive)"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	listing, err := h.listings.SetStatus(ctx, middleware.CurrentUser(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Listing status updated", gin.H{"listing": listing})
}
