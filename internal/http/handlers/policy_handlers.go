package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"go.uber.org/zap"
)

// PolicyHandlers exposes role policy administration
type PolicyHandlers struct {
	policySvc domain.PolicyService
	log       *zap.Logger
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policySvc domain.PolicyService, log *zap.Logger) *PolicyHandlers {
	return &PolicyHandlers{policySvc: policySvc, log: log.Named("http")}
}

// PolicyRequest grants or revokes action on resource for a role
type PolicyRequest struct {
	Role     string `json:"role" binding:"required,oneof=payer monitor hospital_admin super_admin"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// PolicyResponse is one stored rule
type PolicyResponse struct {
	Role     string `json:"role"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (h *PolicyHandlers) List(c *gin.Context) {
	policies, err := h.policySvc.GetPolicies()
	if err != nil {
		h.log.Error("failed to list policies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list policies"})
		return
	}

	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		if len(p) < 3 {
			continue
		}
		out = append(out, PolicyResponse{Role: p[0], Resource: p[1], Action: p[2]})
	}
	c.JSON(http.StatusOK, out)
}

func (h *PolicyHandlers) Add(c *gin.Context) {
	var r PolicyRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.policySvc.AddPolicy(r.Role, r.Resource, r.Action); err != nil {
		h.log.Error("failed to add policy", zap.String("role", r.Role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add policy"})
		return
	}
	h.log.Info("policy added", zap.String("role", r.Role), zap.String("resource", r.Resource), zap.String("action", r.Action))
	c.Status(http.StatusNoContent)
}

func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r PolicyRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.policySvc.RemovePolicy(r.Role, r.Resource, r.Action); err != nil {
		h.log.Error("failed to remove policy", zap.String("role", r.Role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove policy"})
		return
	}
	h.log.Info("policy removed", zap.String("role", r.Role), zap.String("resource", r.Resource), zap.String("action", r.Action))
	c.Status(http.StatusNoContent)
}
