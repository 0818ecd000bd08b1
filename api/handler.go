// Package api is the HTTP surface over extraction and evaluation.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"expansion-evaluator/background"
	"expansion-evaluator/evaluation"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Extractor extracts one store catalog
type Extractor interface {
	ExtractProductsFromStore(ctx context.Context, storeURL string, maxProducts int) types.ExtractionResult
}

// Evaluator runs an expansion store evaluation
type Evaluator interface {
	Evaluate(ctx context.Context, mainURL, expansionURL string, mainType, expansionType evaluation.BusinessType) evaluation.Report
}

// StatusReporter describes the background worker
type StatusReporter interface {
	Status() background.Status
}

// ExtractRequest is the body of POST /api/v1/extract
type ExtractRequest struct {
	StoreURL    string `json:"store_url" binding:"required"`
	MaxProducts int    `json:"max_products"`
}

// EvaluateRequest is the body of POST /api/v1/evaluate
type EvaluateRequest struct {
	MainStoreURL       string `json:"main_store_url" binding:"required"`
	ExpansionStoreURL  string `json:"expansion_store_url" binding:"required"`
	MainStoreType      string `json:"main_store_type"`
	ExpansionStoreType string `json:"expansion_store_type"`
}

// APIResponse wraps every response body
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor  Extractor
	evaluator  Evaluator
	background StatusReporter
	config     *types.Config
	logger     types.Logger
}

// NewHandler creates a Handler. background may be nil when the worker is disabled.
func NewHandler(extractor Extractor, evaluator Evaluator, background StatusReporter, config *types.Config, logger types.Logger) *Handler {
	return &Handler{
		extractor:  extractor,
		evaluator:  evaluator,
		background: background,
		config:     config,
		logger:     logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "expansion-evaluator",
	})
}

// Extract handles single store extraction
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.StoreURL = utils.EnsureScheme(req.StoreURL)
	if req.MaxProducts <= 0 {
		req.MaxProducts = h.config.Evaluation.MaxProducts
	}

	h.logger.Infof("API extraction request for %s (max %d)", req.StoreURL, req.MaxProducts)
	result := h.extractor.ExtractProductsFromStore(c.Request.Context(), req.StoreURL, req.MaxProducts)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: result})
}

// Evaluate handles an expansion store evaluation
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	mainType, err := evaluation.ParseBusinessType(req.MainStoreType)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	expansionType, err := evaluation.ParseBusinessType(req.ExpansionStoreType)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	report := h.evaluator.Evaluate(c.Request.Context(),
		utils.EnsureScheme(req.MainStoreURL), utils.EnsureScheme(req.ExpansionStoreURL), mainType, expansionType)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: report})
}

// BackgroundStatus reports the background worker state
func (h *Handler) BackgroundStatus(c *gin.Context) {
	if h.background == nil {
		c.JSON(http.StatusOK, APIResponse{Success: true, Data: background.Status{Phase: background.Phase}})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: h.background.Status()})
}

func (h *Handler) sendError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}
