package credential

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	credentialService "github.com/caremesh/credentialing-api/internal/service/credential"
)

type Handler struct {
	service    *credentialService.Service
	outboxRepo repository.OutboxRepository
}

func NewHandler(service *credentialService.Service, outboxRepo repository.OutboxRepository) *Handler {
	return &Handler{service: service, outboxRepo: outboxRepo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	physicians := r.Group("/physicians/:id")
	{
		physicians.POST("/licenses", h.CreateLicense)
		physicians.GET("/licenses", h.ListLicenses)
		physicians.POST("/dea-registrations", h.CreateDEA)
		physicians.GET("/dea-registrations", h.ListDEAs)
		physicians.POST("/csr-licenses", h.CreateCSR)
		physicians.GET("/csr-licenses", h.ListCSRs)
		physicians.POST("/certifications", h.CreateCertification)
		physicians.GET("/certifications", h.ListCertifications)

		physicians.GET("/credentials", h.ListCredentials)
	}

	r.PUT("/credentials/:entityType/:credID/renew",
		middleware.ValidateEnum("entityType", middleware.EnumInParam, model.EntityTypes...),
		h.RenewCredential)
}

func physicianID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateLicense(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	license, err := h.service.CreateLicense(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventCredentialCreate, license)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(license))
}

func (h *Handler) ListLicenses(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	licenses, err := h.service.ListLicenses(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(licenses))
}

func (h *Handler) CreateDEA(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.CreateDEARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	dea, err := h.service.CreateDEA(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventCredentialCreate, dea)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(dea))
}

func (h *Handler) ListDEAs(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	deas, err := h.service.ListDEAs(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(deas))
}

func (h *Handler) CreateCSR(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.CreateCSRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	csr, err := h.service.CreateCSR(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventCredentialCreate, csr)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(csr))
}

func (h *Handler) ListCSRs(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	csrs, err := h.service.ListCSRs(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(csrs))
}

func (h *Handler) CreateCertification(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.CreateCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cert, err := h.service.CreateCertification(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventCredentialCreate, cert)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cert))
}

func (h *Handler) ListCertifications(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	certs, err := h.service.ListCertifications(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(certs))
}

// ListCredentials returns the merged cross-kind view for one physician,
// sorted by expiration date.
func (h *Handler) ListCredentials(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	credentials, err := h.service.ListPhysicianCredentials(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(credentials))
}

func (h *Handler) RenewCredential(c *gin.Context) {
	entityType := model.EntityType(c.Param("entityType"))

	credID, err := uuid.Parse(c.Param("credID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credential ID"))
		return
	}

	var req model.RenewCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.Renew(c.Request.Context(), entityType, credID, &req); err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventCredentialRenew, gin.H{
		"entity_type": entityType,
		"entity_id":   credID,
	})
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
