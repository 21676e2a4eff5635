package handler

import (
	"net/http"

	"portalwarga/internal/identity"
	"portalwarga/internal/middleware"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	identity identity.Provider
	policy   service.RolePolicy
}

func NewMeHandler(identityProvider identity.Provider, policy service.RolePolicy) *MeHandler {
	return &MeHandler{identity: identityProvider, policy: policy}
}

func (h *MeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/me", middleware.RequireRole(), h.GetMe)
}

type MeResponse struct {
	identity.Actor
	IsAdmin     bool `json:"is_admin"`
	IsApprover  bool `json:"is_approver"`
	IsProcessor bool `json:"is_processor"`
}

// GetMe returns the resolved actor and what the role may do
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *MeHandler) GetMe(c *gin.Context) {
	actor, err := h.identity.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, MeResponse{
		Actor:       actor,
		IsAdmin:     h.policy.IsAdmin(actor.Role),
		IsApprover:  h.policy.IsApprover(actor.Role),
		IsProcessor: h.policy.IsProcessor(actor.Role),
	}))
}
