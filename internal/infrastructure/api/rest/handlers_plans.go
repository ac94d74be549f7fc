package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/application/planservice"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// PlanHandlers provides HTTP handlers for plan creation and lifecycle
// endpoints.
type PlanHandlers struct {
	plans  *planservice.Service
	logger *logger.Logger
}

// NewPlanHandlers creates a new PlanHandlers instance.
func NewPlanHandlers(plans *planservice.Service, log *logger.Logger) *PlanHandlers {
	return &PlanHandlers{plans: plans, logger: log}
}

type planLinks struct {
	Self  string `json:"self"`
	Tasks string `json:"tasks"`
}

type planResponse struct {
	ID           uuid.UUID              `json:"id"`
	TemplateKey  string                 `json:"template_key"`
	Facts        map[string]interface{} `json:"facts,omitempty"`
	Status       string                 `json:"status"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
	Links        *planLinks             `json:"links,omitempty"`
	SnapshotMeta map[string]interface{} `json:"snapshot_meta,omitempty"`
	Snapshot     map[string]interface{} `json:"snapshot,omitempty"`
}

func planLinksFor(planID uuid.UUID) *planLinks {
	return &planLinks{
		Self:  "/plans/" + planID.String(),
		Tasks: "/plans/" + planID.String() + "/tasks",
	}
}

func snapshotMeta(snapshot models.JSONBMap, templateKey string) map[string]interface{} {
	meta := map[string]interface{}{
		"template_key": templateKey,
	}
	for _, key := range []string{"generated_at", "task_count", "engine_version"} {
		if v, ok := snapshot[key]; ok {
			meta[key] = v
		}
	}
	return meta
}

func toPlanCreateResponse(plan *models.PlanModel) planResponse {
	return planResponse{
		ID:          plan.ID,
		TemplateKey: plan.TemplateKey,
		Status:      plan.Status,
		CreatedAt:   plan.CreatedAt.UTC().Format(rfc3339Milli),
		UpdatedAt:   plan.UpdatedAt.UTC().Format(rfc3339Milli),
		Links:       planLinksFor(plan.ID),
	}
}

func toPlanDetailResponse(plan *models.PlanModel, includeSnapshot bool) planResponse {
	resp := planResponse{
		ID:           plan.ID,
		TemplateKey:  plan.TemplateKey,
		Facts:        plan.Facts,
		Status:       plan.Status,
		CreatedAt:    plan.CreatedAt.UTC().Format(rfc3339Milli),
		UpdatedAt:    plan.UpdatedAt.UTC().Format(rfc3339Milli),
		SnapshotMeta: snapshotMeta(plan.Snapshot, plan.TemplateKey),
	}
	if includeSnapshot {
		resp.Snapshot = plan.Snapshot
	}
	return resp
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// HandleCreatePlan handles POST /plans.
func (h *PlanHandlers) HandleCreatePlan(c *gin.Context) {
	var req struct {
		TemplateKey string                 `json:"template_key" binding:"required"`
		Facts       map[string]interface{} `json:"facts"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	plan, err := h.plans.Create(c.Request.Context(), req.TemplateKey, req.Facts)
	if err != nil {
		h.logger.Error("failed to create plan", "error", err, "template_key", req.TemplateKey, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPlanCreateResponse(plan))
}

// HandleGetPlan handles GET /plans/{id}.
func (h *PlanHandlers) HandleGetPlan(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	id, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	plan, err := h.plans.Get(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	includeSnapshot := getQuery(c, "include_snapshot", "false") == "true"
	respondJSON(c, http.StatusOK, toPlanDetailResponse(plan, includeSnapshot))
}

// HandleUpdateFacts handles PATCH /plans/{id}/facts.
func (h *PlanHandlers) HandleUpdateFacts(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	id, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	var req struct {
		Facts     map[string]interface{} `json:"facts"`
		Recompute bool                    `json:"recompute"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	plan, err := h.plans.UpdateFacts(c.Request.Context(), id, planservice.UpdateFactsParams{
		Patch:     req.Facts,
		Recompute: req.Recompute,
	})
	if err != nil {
		h.logger.Error("failed to update plan facts", "error", err, "plan_id", id, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPlanDetailResponse(plan, false))
}

// HandleRecomputePlan handles POST /plans/{id}/recompute.
func (h *PlanHandlers) HandleRecomputePlan(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	id, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	plan, err := h.plans.Recompute(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to recompute plan", "error", err, "plan_id", id, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPlanDetailResponse(plan, false))
}
