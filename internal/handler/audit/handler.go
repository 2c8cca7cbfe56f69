package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/service/audit"
)

// auditEntityTypes are the entity labels recorded by the services.
var auditEntityTypes = []string{
	model.AuditEntityPhysician,
	model.AuditEntityLicense,
	model.AuditEntityDEA,
	model.AuditEntityCSR,
	model.AuditEntityCertification,
	model.AuditEntityWorkflow,
	model.AuditEntityDocument,
}

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs/:entityType/:entityID", h.GetEntityLogs)
	}
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityType := c.Param("entityType")
	if !validEntityType(entityType) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entity type"))
		return
	}

	entityID, err := uuid.Parse(c.Param("entityID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entity ID"))
		return
	}

	logs, err := h.service.History(c.Request.Context(), entityType, entityID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

func validEntityType(value string) bool {
	for _, t := range auditEntityTypes {
		if t == value {
			return true
		}
	}
	return false
}
