// Package http exposes the products service over gin.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erpmesh/erpmesh/internal/domains/products/application"
	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

// Handler adapts HTTP requests to the products service port.
type Handler struct {
	service   ports.Service
	responder *apierrors.Responder
}

func NewHandler(service ports.Service) *Handler {
	return &Handler{
		service:   service,
		responder: apierrors.NewChainedResponder("", mapServiceError),
	}
}

// RegisterRoutes mounts the product endpoints on the given group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.create)
	group.GET("", h.query)
	group.GET("/:id", h.get)
	group.PUT("/:id", h.update)
	group.DELETE("/:id", h.delete)
	group.POST("/:id/stock", h.adjustStock)
}

type productRequest struct {
	SKU            string   `json:"sku" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	UnitPriceCents int64    `json:"unitPriceCents" binding:"required"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
	StockLevel     int32    `json:"stockLevel"`
}

type productResponse struct {
	ID             string   `json:"id"`
	SKU            string   `json:"sku"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	UnitPriceCents int64    `json:"unitPriceCents"`
	Tags           []string `json:"tags,omitempty"`
	Status         string   `json:"status"`
	StockLevel     int32    `json:"stockLevel"`
}

type stockRequest struct {
	Delta int32 `json:"delta" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	product, err := toDomain(req)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	created, err := h.service.AddProduct(c.Request.Context(), product)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(created))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	projection, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.responder.NotFound(c, "product", id)
			return
		}
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(projection))
}

func (h *Handler) update(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	product, err := toDomain(req)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), product)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(updated))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) query(c *gin.Context) {
	filter := ports.Filter{}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.Status(raw))
		}
	}
	for _, raw := range strings.Split(c.Query("tags"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Tags = append(filter.Tags, raw)
		}
	}
	projections, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]productResponse, 0, len(projections))
	for _, projection := range projections {
		out = append(out, toResponse(projection))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) adjustStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	projection, err := h.service.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(projection))
}

func toDomain(req productRequest) (*domain.Product, error) {
	product, err := domain.NewProduct(req.SKU, req.Name, req.UnitPriceCents)
	if err != nil {
		return nil, err
	}
	product.Description = strings.TrimSpace(req.Description)
	for _, tag := range req.Tags {
		product.Tag(tag)
	}
	if err := product.UpdateStatus(domain.Status(req.Status)); err != nil {
		return nil, err
	}
	if req.StockLevel != 0 {
		if err := product.AdjustStock(req.StockLevel); err != nil {
			return nil, err
		}
	}
	return product, nil
}

func toResponse(projection *ports.ProductProjection) productResponse {
	product := projection.Entity
	return productResponse{
		ID:             product.ID,
		SKU:            product.SKU,
		Name:           product.Name,
		Description:    product.Description,
		UnitPriceCents: product.UnitPriceCents,
		Tags:           product.Tags,
		Status:         string(product.Status),
		StockLevel:     product.StockLevel,
	}
}

func mapServiceError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrStockConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	}
	var problem apierrors.ProblemDetail
	if errors.As(err, &problem) {
		return problem, true
	}
	return apierrors.ProblemDetail{}, false
}
