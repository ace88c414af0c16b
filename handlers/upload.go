package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"farmsetu/media"
	"farmsetu/upload"

	"github.com/gin-gonic/gin"
)

// UploadHandler stores media ahead of listing creation. Clients send the
// returned filenames in the listing's images and video fields.
type UploadHandler struct {
	receiver *upload.Receiver
	log      *slog.Logger
}

func NewUploadHandler(receiver *upload.Receiver, log *slog.Logger) *UploadHandler {
	return &UploadHandler{receiver: receiver, log: log}
}

func (h *UploadHandler) Image(c *gin.Context) {
	files, ok := h.receive(c, upload.SingleImagePolicy, media.KindImage, "No image file provided")
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Image uploaded successfully", gin.H{"filename": files[0].Ref})
}

func (h *UploadHandler) Images(c *gin.Context) {
	files, ok := h.receive(c, upload.ImagesPolicy, media.KindImage, "No image files provided")
	if !ok {
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Ref)
	}
	respond(c, http.StatusOK, "Images uploaded successfully", gin.H{"filenames": names})
}

func (h *UploadHandler) Video(c *gin.Context) {
	files, ok := h.receive(c, upload.SingleVideoPolicy, media.KindVideo, "No video file provided")
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Video uploaded successfully", gin.H{"filename": files[0].Ref})
}

func (h *UploadHandler) receive(c *gin.Context, p upload.Policy, kind media.Kind, missing string) ([]upload.StoredFile, bool) {
	form, err := h.receiver.Receive(c.Request, p)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	files := form.Of(kind)
	if len(files) == 0 {
		h.receiver.Discard(context.WithoutCancel(c.Request.Context()), form.Files)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": missing})
		return nil, false
	}
	return files, true
}
