package physician

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/education"
	physicianService "github.com/caremesh/credentialing-api/internal/service/physician"
)

type Handler struct {
	service      physicianService.PhysicianService
	educationSvc *education.Service
	outboxRepo   repository.OutboxRepository
}

func NewHandler(service physicianService.PhysicianService, educationSvc *education.Service, outboxRepo repository.OutboxRepository) *Handler {
	return &Handler{service: service, educationSvc: educationSvc, outboxRepo: outboxRepo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	physicians := r.Group("/physicians")
	{
		physicians.POST("", h.CreatePhysician)
		physicians.GET("", middleware.ValidateEnum("status", middleware.EnumInQuery, model.PhysicianStatuses...), h.ListPhysicians)
		physicians.GET("/:id", h.GetPhysician)
		physicians.PUT("/:id", h.UpdatePhysician)
		physicians.DELETE("/:id", h.DeletePhysician)

		physicians.POST("/:id/education", h.CreateEducation)
		physicians.GET("/:id/education", h.ListEducation)
		physicians.PUT("/:id/education/:entryID", h.UpdateEducation)
		physicians.POST("/:id/work-history", h.CreateWorkHistory)
		physicians.GET("/:id/work-history", h.ListWorkHistory)
		physicians.PUT("/:id/work-history/:entryID", h.UpdateWorkHistory)
	}
}

func (h *Handler) CreatePhysician(c *gin.Context) {
	var req model.CreatePhysicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	physician := &model.Physician{
		NPI:              req.NPI,
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastName:         req.LastName,
		Suffix:           req.Suffix,
		DateOfBirth:      req.DateOfBirth,
		SSNLast4:         req.SSNLast4,
		Email:            req.Email,
		PhoneNumbers:     pq.StringArray(req.PhoneNumbers),
		AddressLine1:     req.AddressLine1,
		AddressLine2:     req.AddressLine2,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
		Specialty:        req.Specialty,
		Status:           req.Status,
		EmergencyContact: req.Emergency,
	}

	if err := h.service.CreatePhysician(c.Request.Context(), physician); err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventPhysicianCreate, physician)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(physician))
}

func (h *Handler) GetPhysician(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	physician, err := h.service.GetPhysician(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(physician))
}

func (h *Handler) ListPhysicians(c *gin.Context) {
	var filters model.PhysicianFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	physicians, err := h.service.ListPhysicians(c.Request.Context(), &filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(physicians))
}

func (h *Handler) UpdatePhysician(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	var req model.UpdatePhysicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	// Partial update: unset fields keep their stored values. NPI, date of
	// birth and SSN are fixed at creation.
	physician, err := h.service.GetPhysician(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	applyUpdate(physician, &req)

	if err := h.service.UpdatePhysician(c.Request.Context(), physician); err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventPhysicianUpdate, physician)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(physician))
}

func applyUpdate(physician *model.Physician, req *model.UpdatePhysicianRequest) {
	if req.FirstName != nil {
		physician.FirstName = *req.FirstName
	}
	if req.MiddleName != nil {
		physician.MiddleName = *req.MiddleName
	}
	if req.LastName != nil {
		physician.LastName = *req.LastName
	}
	if req.Suffix != nil {
		physician.Suffix = *req.Suffix
	}
	if req.Email != nil {
		physician.Email = *req.Email
	}
	if req.PhoneNumbers != nil {
		physician.PhoneNumbers = pq.StringArray(req.PhoneNumbers)
	}
	if req.AddressLine1 != nil {
		physician.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		physician.AddressLine2 = *req.AddressLine2
	}
	if req.City != nil {
		physician.City = *req.City
	}
	if req.State != nil {
		physician.State = *req.State
	}
	if req.ZipCode != nil {
		physician.ZipCode = *req.ZipCode
	}
	if req.Specialty != nil {
		physician.Specialty = *req.Specialty
	}
	if req.Status != nil {
		physician.Status = *req.Status
	}
	if req.Emergency != nil {
		physician.EmergencyContact = req.Emergency
	}
}

func (h *Handler) DeletePhysician(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	if err := h.service.DeletePhysician(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventPhysicianDelete, gin.H{"id": id})
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateEducation(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	var req model.CreateEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.educationSvc.CreateEducation(c.Request.Context(), physicianID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(entry))
}

func (h *Handler) ListEducation(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	entries, err := h.educationSvc.ListEducation(c.Request.Context(), physicianID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) UpdateEducation(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}
	entryID, err := uuid.Parse(c.Param("entryID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entry ID"))
		return
	}

	var req model.UpdateEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.educationSvc.UpdateEducation(c.Request.Context(), physicianID, entryID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entry))
}

func (h *Handler) CreateWorkHistory(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	var req model.CreateWorkHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.educationSvc.CreateWorkHistory(c.Request.Context(), physicianID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(entry))
}

func (h *Handler) UpdateWorkHistory(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}
	entryID, err := uuid.Parse(c.Param("entryID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entry ID"))
		return
	}

	var req model.UpdateWorkHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.educationSvc.UpdateWorkHistory(c.Request.Context(), physicianID, entryID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entry))
}

func (h *Handler) ListWorkHistory(c *gin.Context) {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return
	}

	entries, err := h.educationSvc.ListWorkHistory(c.Request.Context(), physicianID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
