// Package http exposes the orders service over gin.
package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erpmesh/erpmesh/internal/domains/orders/application"
	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

// Handler adapts HTTP requests to the orders service port. Placement goes
// through the workflow orchestrator so durable execution stays transparent
// to callers.
type Handler struct {
	service      ports.Service
	orchestrator ports.WorkflowOrchestrator
	responder    *apierrors.Responder
}

func NewHandler(service ports.Service, orchestrator ports.WorkflowOrchestrator) *Handler {
	return &Handler{
		service:      service,
		orchestrator: orchestrator,
		responder:    apierrors.NewChainedResponder("", mapServiceError),
	}
}

// RegisterRoutes mounts the order endpoints on the given group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.place)
	group.GET("", h.query)
	group.GET("/:id", h.get)
	group.POST("/:id/status", h.transition)
	group.DELETE("/:id", h.delete)
}

type lineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int32  `json:"quantity" binding:"required"`
}

type placeOrderRequest struct {
	UserID string        `json:"userId" binding:"required"`
	Lines  []lineRequest `json:"lines" binding:"required"`
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type lineResponse struct {
	ProductID      string `json:"productId"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

type orderResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Lines      []lineResponse `json:"lines"`
	Status     string         `json:"status"`
	TotalCents int64          `json:"totalCents"`
	PlacedAt   time.Time      `json:"placedAt"`
}

func (h *Handler) place(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input := types.PlaceOrderInput{
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		UserID:         req.UserID,
		Lines:          make([]types.LineInput, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, types.LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	placed, err := h.orchestrator.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(placed))
}

func (h *Handler) get(c *gin.Context) {
	order, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(order))
}

func (h *Handler) transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	updated, err := h.service.Transition(c.Request.Context(), c.Param("id"), domain.Status(req.Status))
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
	filter := ports.Filter{UserID: c.Query("userId")}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.Status(raw))
		}
	}
	orders, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toResponse(order))
	}
	c.JSON(http.StatusOK, out)
}

func toResponse(projection *types.OrderProjection) orderResponse {
	order := projection.Entity
	resp := orderResponse{
		ID:         order.ID,
		UserID:     order.UserID,
		Lines:      make([]lineResponse, 0, len(order.Lines)),
		Status:     string(order.Status),
		TotalCents: order.TotalCents(),
		PlacedAt:   order.PlacedAt,
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return resp
}

func mapServiceError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrUnknownUser), errors.Is(err, ports.ErrUnknownProduct):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	var problem apierrors.ProblemDetail
	if errors.As(err, &problem) {
		return problem, true
	}
	return apierrors.ProblemDetail{}, false
}
