package document

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	documentService "github.com/caremesh/credentialing-api/internal/service/document"
)

type Handler struct {
	service    *documentService.Service
	outboxRepo repository.OutboxRepository
}

func NewHandler(service *documentService.Service, outboxRepo repository.OutboxRepository) *Handler {
	return &Handler{service: service, outboxRepo: outboxRepo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	physicians := r.Group("/physicians/:id/documents")
	{
		physicians.POST("/upload-url", h.UploadURL)
		physicians.POST("", h.RegisterDocument)
		physicians.GET("",
			middleware.ValidateEnum("document_type", middleware.EnumInQuery, model.DocumentTypes...),
			h.ListDocuments)
	}

	r.GET("/documents/:docID/download-url", h.DownloadURL)
}

func physicianID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid physician ID"))
		return uuid.Nil, false
	}
	return id, true
}

// UploadURL is phase one of the two-phase upload. The client PUTs the file
// to the returned presigned URL, then registers metadata.
func (h *Handler) UploadURL(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if !validDocumentType(req.DocumentType) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid document_type"))
		return
	}

	resp, err := h.service.UploadURL(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) RegisterDocument(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var req model.RegisterDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if !validDocumentType(req.DocumentType) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid document_type"))
		return
	}

	doc, err := h.service.Register(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	handler.EmitEvent(c.Request.Context(), h.outboxRepo, model.EventDocumentUpload, doc)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(doc))
}

func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := physicianID(c)
	if !ok {
		return
	}

	var filters model.DocumentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	docs, err := h.service.List(c.Request.Context(), id, &filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(docs))
}

func (h *Handler) DownloadURL(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("docID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid document ID"))
		return
	}

	resp, err := h.service.DownloadURL(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func validDocumentType(value string) bool {
	for _, t := range model.DocumentTypes {
		if t == value {
			return true
		}
	}
	return false
}
