package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mediabooster-Norge/Analyse-sub000/pipeline"
	"github.com/Mediabooster-Norge/Analyse-sub000/stats"
	"github.com/Mediabooster-Norge/Analyse-sub000/store"
)

type analyzeRequest struct {
	URL               string   `json:"url" binding:"required,url"`
	Industry          string   `json:"industry"`
	TargetKeywords    []string `json:"targetKeywords"`
	CompanyName       string   `json:"companyName"`
	IncludeAI         *bool    `json:"includeAi"`
	UsePremiumAIModel bool     `json:"usePremiumAiModel"`
	QuickSecurityScan bool     `json:"quickSecurityScan"`
	CheckAIVisibility bool     `json:"checkAiVisibility"`
	Premium           bool     `json:"premium"`
	AccountID         string   `json:"accountId"`
}

type competitorRequest struct {
	analyzeRequest
	Competitors []string `json:"competitors" binding:"required,min=1"`
}

type competitorUpdateRequest struct {
	Competitors []string `json:"competitors" binding:"required"`
	Premium     bool     `json:"premium"`
}

type keywordUpdateRequest struct {
	Keywords          []string `json:"keywords" binding:"required,min=1"`
	Premium           bool     `json:"premium"`
	UsePremiumAIModel bool     `json:"usePremiumAiModel"`
}

func (r *analyzeRequest) options() pipeline.Options {
	opts := pipeline.DefaultOptions()
	if r.IncludeAI != nil {
		opts.IncludeAI = *r.IncludeAI
	}
	opts.UsePremiumAIModel = r.UsePremiumAIModel
	opts.QuickSecurityScan = r.QuickSecurityScan
	opts.Industry = r.Industry
	opts.TargetKeywords = r.TargetKeywords
	opts.CompanyName = r.CompanyName
	opts.CheckAIVisibility = r.CheckAIVisibility
	opts.IsPremiumAccount = r.Premium
	opts.AccountID = r.AccountID
	return opts
}

type handlers struct {
	service *pipeline.Service
	store   store.Store
	stats   *stats.Storage
	log     *zap.Logger
}

func (h *handlers) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.RunFullAnalysis(c.Request.Context(), req.URL, req.options())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) analyzeCompetitors(c *gin.Context) {
	var req competitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.RunCompetitorAnalysis(c.Request.Context(), req.URL, req.Competitors, req.options())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) getAnalysis(c *gin.Context) {
	result, err := h.store.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) updateCompetitors(c *gin.Context) {
	var req competitorUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.UpdateCompetitors(c.Request.Context(), c.Param("id"), req.Competitors, req.Premium)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) updateKeywords(c *gin.Context) {
	var req keywordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.UpdateKeywords(c.Request.Context(), c.Param("id"), req.Keywords, req.Premium, req.UsePremiumAIModel)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) statistics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": h.stats.GetCurrentStats(),
		"months":  h.stats.GetAllMonths(),
	})
}

// fail maps pipeline and store errors to HTTP responses. Quota and limit
// conditions get distinct codes so the caller can show an upgrade message
// instead of a generic failure.
func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
	case errors.Is(err, store.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "Update quota exceeded", "code": "quota_exceeded"})
	case errors.Is(err, pipeline.ErrMonthlyLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Monthly analysis limit reached", "code": "monthly_limit"})
	case errors.Is(err, pipeline.ErrNoChanges):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requested set is identical to the stored set", "code": "no_changes"})
	default:
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to analyze: " + err.Error()})
	}
}
