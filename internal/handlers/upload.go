package handlers

import (
	"net/http"

	"threadloom/internal/errs"
	"threadloom/internal/services"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads *services.UploadService
}

func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Create accepts a multipart image and returns its stable URL. The core
// only ever sees that URL.
func (h *UploadHandler) Create(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, errs.Validation("missing image file field"))
		return
	}
	defer file.Close()

	result, err := h.uploads.Save(file, header)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
