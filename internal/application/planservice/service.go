// Package planservice orchestrates plan creation and recomputation: it
// loads a template, normalizes facts, runs the planner engine, and
// persists the resulting plan/task rows transactionally.
package planservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/application/facts"
	"github.com/lifeplan/service/internal/domain/planner"
	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// EngineVersion is embedded in every generated snapshot so stored
// plans can be traced back to the planner revision that built them.
const EngineVersion = "1.0.0"

// TemplateLoader loads a compiled template by key. Satisfied by
// *template.Repository and *template.CachedRepository.
type TemplateLoader interface {
	Load(templateKey string) (*planner.Template, error)
}

// Service creates and recomputes plans.
type Service struct {
	templates TemplateLoader
	plans     repository.PlanRepository
	tasks     repository.TaskRepository
}

// New creates a Service.
func New(templates TemplateLoader, plans repository.PlanRepository, tasks repository.TaskRepository) *Service {
	return &Service{templates: templates, plans: plans, tasks: tasks}
}

// Create loads templateKey, normalizes facts, runs the planner, and
// persists the resulting plan and its tasks in one transaction.
// Template-lookup failures (*template.NotFoundError) propagate
// unchanged; planner/validation failures are wrapped in
// *InvalidPlannerInputError.
func (s *Service) Create(ctx context.Context, templateKey string, rawFacts map[string]interface{}) (*models.PlanModel, error) {
	tmpl, err := s.templates.Load(templateKey)
	if err != nil {
		return nil, err
	}

	normalized := facts.Normalize(templateKey, rawFacts)

	plannerPlan, err := planner.GeneratePlan(tmpl, normalized)
	if err != nil {
		return nil, &InvalidPlannerInputError{Err: err}
	}

	plan := &models.PlanModel{
		ID:          uuid.New(),
		TemplateKey: templateKey,
		Facts:       models.JSONBMap(normalized),
		Status:      "active",
	}
	plan.Snapshot = buildSnapshot(templateKey, tmpl, plannerPlan)

	taskRows, err := materializeTasks(tmpl, plannerPlan, nil)
	if err != nil {
		return nil, &InvalidPlannerInputError{Err: err}
	}

	if err := s.plans.CreateWithTasks(ctx, plan, taskRows); err != nil {
		return nil, err
	}
	plan.Tasks = taskRows
	return plan, nil
}

// Get returns a plan by ID, including its tasks.
func (s *Service) Get(ctx context.Context, planID uuid.UUID) (*models.PlanModel, error) {
	return s.plans.FindByID(ctx, planID)
}

// UpdateFactsParams are update_facts's inputs.
type UpdateFactsParams struct {
	Patch     map[string]interface{}
	Recompute bool
}

// UpdateFacts shallow-merges Patch into the plan's existing facts,
// re-normalizes, persists the merged facts, and optionally recomputes
// the plan's task set.
func (s *Service) UpdateFacts(ctx context.Context, planID uuid.UUID, params UpdateFactsParams) (*models.PlanModel, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]interface{}, len(plan.Facts)+len(params.Patch))
	for k, v := range plan.Facts {
		merged[k] = v
	}
	for k, v := range params.Patch {
		merged[k] = v
	}
	normalized := facts.Normalize(plan.TemplateKey, merged)

	if !params.Recompute {
		if err := s.plans.UpdateFacts(ctx, planID, models.JSONBMap(normalized)); err != nil {
			return nil, err
		}
		plan.Facts = models.JSONBMap(normalized)
		return plan, nil
	}

	plan.Facts = models.JSONBMap(normalized)
	return s.recompute(ctx, plan)
}

// Recompute re-runs the planner against the plan's stored template and
// current normalized facts, preserving the done-state of any
// surviving task.
func (s *Service) Recompute(ctx context.Context, planID uuid.UUID) (*models.PlanModel, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.recompute(ctx, plan)
}

func (s *Service) recompute(ctx context.Context, plan *models.PlanModel) (*models.PlanModel, error) {
	tmpl, err := s.templates.Load(plan.TemplateKey)
	if err != nil {
		return nil, err
	}

	normalized := facts.Normalize(plan.TemplateKey, plan.Facts)
	plannerPlan, err := planner.GeneratePlan(tmpl, normalized)
	if err != nil {
		return nil, &InvalidPlannerInputError{Err: err}
	}

	existing, err := s.tasks.ListByPlan(ctx, plan.ID, "")
	if err != nil {
		return nil, err
	}
	completedAt := make(map[string]time.Time, len(existing))
	for _, task := range existing {
		if task.Status == "done" && task.CompletedAt != nil {
			completedAt[task.TaskKey] = *task.CompletedAt
		}
	}

	taskRows, err := materializeTasks(tmpl, plannerPlan, completedAt)
	if err != nil {
		return nil, &InvalidPlannerInputError{Err: err}
	}

	plan.Facts = models.JSONBMap(normalized)
	plan.Snapshot = buildSnapshot(plan.TemplateKey, tmpl, plannerPlan)
	plan.UpdatedAt = time.Now()

	if err := s.plans.ReplaceTasks(ctx, plan, taskRows); err != nil {
		return nil, err
	}
	plan.Tasks = taskRows
	return plan, nil
}

// materializeTasks builds TaskModel rows from the planner's ordered
// output, assigning a dense sort_key and enriching metadata from the
// template's task definitions. When doneAt has an entry for a task's
// key, that task is restored to status=done with its original
// completed_at instead of starting fresh as todo.
func materializeTasks(tmpl *planner.Template, plan *planner.Plan, doneAt map[string]time.Time) ([]*models.TaskModel, error) {
	rows := make([]*models.TaskModel, 0, len(plan.Tasks))
	for idx, item := range plan.Tasks {
		def := tmpl.Tasks[item.ID]

		metadata := models.JSONBMap{
			"blocked_by": toInterfaceSlice(item.DependsOn),
			"block_type": "hard",
		}
		if def.Category != "" {
			metadata["category"] = def.Category
		}
		if def.Priority != "" {
			metadata["priority"] = def.Priority
		}
		if len(def.Tags) > 0 {
			metadata["tags"] = toInterfaceSlice(def.Tags)
		}

		var dueDate *time.Time
		if item.Deadline != "" {
			parsed, err := planner.ParseISODate(item.Deadline)
			if err != nil {
				return nil, err
			}
			dueDate = &parsed
		}

		row := &models.TaskModel{
			ID:       uuid.New(),
			TaskKey:  item.ID,
			Title:    item.Title,
			Status:   "todo",
			DueDate:  dueDate,
			Metadata: metadata,
			SortKey:  idx,
		}
		if at, ok := doneAt[item.ID]; ok {
			completedAt := at
			row.Status = "done"
			row.CompletedAt = &completedAt
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toInterfaceSlice(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func buildSnapshot(templateKey string, tmpl *planner.Template, plan *planner.Plan) models.JSONBMap {
	rawPlan, _ := json.Marshal(plan)
	var plannerPlan map[string]interface{}
	_ = json.Unmarshal(rawPlan, &plannerPlan)

	return models.JSONBMap{
		"planner_plan": plannerPlan,
		"template_meta": map[string]interface{}{
			"template_key": templateKey,
			"template_id":  tmpl.TemplateID,
			"version":      tmpl.Version,
		},
		"engine_version": EngineVersion,
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
		"task_count":     len(plan.Tasks),
	}
}
