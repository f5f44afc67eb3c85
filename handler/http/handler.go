package http

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"storeclip/src/integrations/backend"
	"storeclip/src/storage/postgres/generationctrl"
	"storeclip/src/upload"
	"storeclip/src/videogen"
)

// Generator is the part of videogen.Service the handlers drive.
type Generator interface {
	Submit(ctx context.Context, in videogen.GenerateInput) (string, error)
	Poll(ctx context.Context, jobID, storeID string, opts videogen.PollOptions) (*videogen.StatusResponse, error)
}

// Ledger stores the latest known state of each generation.
type Ledger interface {
	Create(ctx context.Context, jobID, storeID string) (*generationctrl.Generation, error)
	GetByJobID(ctx context.Context, jobID string) (*generationctrl.Generation, error)
	List(ctx context.Context, limit int, offset int) ([]generationctrl.Generation, error)
}

type Handler struct {
	uploader  upload.Uploader
	generator Generator
	ledger    Ledger
	pollOpts  videogen.PollOptions

	// baseCtx outlives requests; background polls stop when it is done.
	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewHandler(baseCtx context.Context, uploader upload.Uploader, generator Generator, ledger Ledger, pollOpts videogen.PollOptions) *Handler {
	return &Handler{
		uploader:  uploader,
		generator: generator,
		ledger:    ledger,
		pollOpts:  pollOpts,
		baseCtx:   baseCtx,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/upload", h.Upload)

	api.GET("/generations", h.ListGenerations)
	api.POST("/generations", h.CreateGeneration)
	api.GET("/generations/:jobId", h.GetGeneration)

	api.GET("/health", h.CheckHealth)
}

// Wait blocks until every background poll started by the handler returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// CheckHealth godoc
// @Summary Liveness probe
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Common error response structure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Error duplicates Message for upload clients that read {error}.
	Error string `json:"error"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, upload.ErrNoFiles):
		code = "NO_FILES"
		status = http.StatusBadRequest
	case errors.As(err, &apiErr):
		code = "BACKEND_ERROR"
		status = http.StatusBadGateway
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	case status == http.StatusNotFound:
		code = "NOT_FOUND"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
		Error:   err.Error(),
	})
}
