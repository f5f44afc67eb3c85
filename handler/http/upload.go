package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storeclip/src/upload"
)

type UploadResponse struct {
	Success bool `json:"success"`
	upload.Result
}

// Upload godoc
// @Summary Upload one media file to object storage
// @Accept multipart/form-data
// @Param file formData file true "Image or video"
// @Produce json
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /upload [post]
func (h *Handler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	res, err := h.uploader.Upload(c.Request.Context(), upload.File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to upload file: %w", err))
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Success: true,
		Result:  *res,
	})
}
