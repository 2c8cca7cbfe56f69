package analytics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
	analyticsService "github.com/caremesh/credentialing-api/internal/service/analytics"
)

type Handler struct {
	service *analyticsService.Service
}

func NewHandler(service *analyticsService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	analytics := r.Group("/analytics")
	{
		analytics.GET("/compliance", h.ComplianceSummary)
		analytics.GET("/renewal-trends", h.RenewalTrends)
		analytics.GET("/expiration-forecast", h.ExpirationForecast)
		analytics.GET("/provider-metrics", h.ProviderMetrics)
		analytics.GET("/credential-distribution", h.CredentialDistribution)
		analytics.GET("/export",
			middleware.ValidateEnum("format", middleware.EnumInQuery, model.ExportFormats...),
			h.Export)
	}
}

func (h *Handler) ComplianceSummary(c *gin.Context) {
	summary, err := h.service.ComplianceSummary(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func monthsParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("months", "0")
	months, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid months"))
		return 0, false
	}
	return months, true
}

func (h *Handler) RenewalTrends(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	trends, err := h.service.RenewalTrends(c.Request.Context(), months)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(trends))
}

func (h *Handler) ExpirationForecast(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	forecast, err := h.service.ExpirationForecast(c.Request.Context(), months)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(forecast))
}

func (h *Handler) ProviderMetrics(c *gin.Context) {
	metrics, err := h.service.ProviderMetrics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(metrics))
}

func (h *Handler) CredentialDistribution(c *gin.Context) {
	distribution, err := h.service.CredentialDistribution(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(distribution))
}

func (h *Handler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf("credentials-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
