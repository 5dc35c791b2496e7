// Package http exposes the users service over gin.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erpmesh/erpmesh/internal/domains/users/application"
	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

// Handler adapts HTTP requests to the users service port.
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

// RegisterRoutes mounts the user endpoints on the given group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.create)
	group.GET("", h.query)
	group.GET("/:id", h.get)
	group.PUT("/:id", h.update)
	group.DELETE("/:id", h.delete)
}

type userRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	Status   string `json:"status"`
}

func (h *Handler) create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	user, err := toDomain(req)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	created, err := h.service.CreateUser(c.Request.Context(), user)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(created))
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(user))
}

func (h *Handler) update(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	user, err := toDomain(req)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), user)
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
	filter := ports.Filter{Email: c.Query("email")}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.Status(raw))
		}
	}
	users, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toResponse(user))
	}
	c.JSON(http.StatusOK, out)
}

func toDomain(req userRequest) (*domain.User, error) {
	user, err := domain.NewUser(req.Email, req.FullName)
	if err != nil {
		return nil, err
	}
	user.Phone = strings.TrimSpace(req.Phone)
	if err := user.UpdateStatus(domain.Status(req.Status)); err != nil {
		return nil, err
	}
	return user, nil
}

func toResponse(user *domain.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
		Status:   string(user.Status),
	}
}

func mapServiceError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	var problem apierrors.ProblemDetail
	if errors.As(err, &problem) {
		return problem, true
	}
	return apierrors.ProblemDetail{}, false
}
