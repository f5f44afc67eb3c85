package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storeclip/src/log"
	"storeclip/src/upload"
	"storeclip/src/videogen"
)

type CreateGenerationResponse struct {
	ID     string `json:"id"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateGeneration godoc
// @Summary Upload media and start a video generation
// @Accept multipart/form-data
// @Param storeId formData string true "Store ID"
// @Param text formData string false "Prompt text"
// @Param images formData file false "Store photos"
// @Param videos formData file false "Store clips"
// @Produce json
// @Success 202 {object} CreateGenerationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /generations [post]
func (h *Handler) CreateGeneration(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("multipart form required: %w", err))
		return
	}

	storeID := c.PostForm("storeId")
	if storeID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("storeId is required"))
		return
	}

	images, closeImages, err := openParts(form.File["images"])
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	defer closeImages()

	videos, closeVideos, err := openParts(form.File["videos"])
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	defer closeVideos()

	// Uploads read straight from the request's multipart files, so they
	// have to finish before the handler returns.
	jobID, err := h.generator.Submit(c.Request.Context(), videogen.GenerateInput{
		Text:    c.PostForm("text"),
		StoreID: storeID,
		Images:  images,
		Videos:  videos,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	gen, err := h.ledger.Create(c.Request.Context(), jobID, storeID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.generator.Poll(h.baseCtx, jobID, storeID, h.pollOpts); err != nil {
			log.Error(err, "background poll ended", "job_id", jobID)
		}
	}()

	c.JSON(http.StatusAccepted, CreateGenerationResponse{
		ID:     strconv.FormatInt(gen.ID, 10),
		JobID:  jobID,
		Status: gen.Status,
	})
}

// GetGeneration godoc
// @Summary Latest recorded status of a generation job
// @Param jobId path string true "Backend job ID"
// @Produce json
// @Success 200 {object} generationctrl.Generation
// @Failure 404 {object} ErrorResponse
// @Router /generations/{jobId} [get]
func (h *Handler) GetGeneration(c *gin.Context) {
	jobID := c.Param("jobId")

	gen, err := h.ledger.GetByJobID(c.Request.Context(), jobID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if gen == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("generation %s not found", jobID))
		return
	}

	c.JSON(http.StatusOK, gen)
}

// ListGenerations godoc
// @Summary List recorded generations, newest first
// @Param limit query int false "Page size (default 10)"
// @Param offset query int false "Offset"
// @Produce json
// @Router /generations [get]
func (h *Handler) ListGenerations(c *gin.Context) {
	limit := 10
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil || limit <= 0 {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid limit parameter"))
			return
		}
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil || offset < 0 {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid offset parameter"))
			return
		}
	}

	gens, err := h.ledger.List(c.Request.Context(), limit, offset)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generations": gens,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func openParts(headers []*multipart.FileHeader) ([]upload.File, func(), error) {
	files := make([]upload.File, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		closers = append(closers, f)
		files = append(files, upload.File{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
		})
	}

	return files, closeAll, nil
}
