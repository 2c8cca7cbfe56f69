package workflow

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	workflowService "github.com/caremesh/credentialing-api/internal/service/workflow"
)

type Handler struct {
	service    *workflowService.Service
	outboxRepo repository.OutboxRepository
}

func NewHandler(service *workflowService.Service, outboxRepo repository.OutboxRepository) *Handler {
	return &Handler{service: service, outboxRepo: outboxRepo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	renewals := r.Group("/renewals")
	{
		renewals.POST("", h.CreateWorkflow)
		renewals.GET("",
			middleware.ValidateEnum("status", middleware.EnumInQuery, model.WorkflowStatuses...),
			middleware.ValidateEnum("entity_type", middleware.EnumInQuery, model.EntityTypes...),
			h.ListWorkflows)
		renewals.GET("/:id", h.GetWorkflow)
		renewals.PUT("/:id/status", h.UpdateStatus)
		renewals.PUT("/:id/progress", h.UpdateProgress)
		renewals.POST("/:id/checklist", h.AddChecklistItem)
		renewals.PUT("/:id/checklist/:itemID/toggle", h.ToggleChecklistItem)
	}
}

func workflowID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid workflow ID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateWorkflow(c *gin.Context) {
	var req model.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	workflow, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(workflow))
}

func (h *Handler) ListWorkflows(c *gin.Context) {
	var filters model.WorkflowFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if raw := c.Query("physician_id"); raw != "" {
		physicianID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician_id"))
			return
		}
		filters.PhysicianID = physicianID
	}

	workflows, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflows))
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}

	var req model.UpdateWorkflowStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	workflow, err := h.service.Transition(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventWorkflowStatusChange, workflow)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflow))
}

func (h *Handler) UpdateProgress(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}

	var req model.UpdateWorkflowProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	workflow, err := h.service.UpdateProgress(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflow))
}

func (h *Handler) AddChecklistItem(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}

	var req model.CreateChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.service.AddChecklistItem(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(item))
}

type toggleChecklistRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

func (h *Handler) ToggleChecklistItem(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid checklist item ID"))
		return
	}

	var req toggleChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.service.ToggleChecklistItem(c.Request.Context(), id, itemID, *req.Completed)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}
