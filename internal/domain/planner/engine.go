package planner

import "sort"

// DeadlineSpec is a task's relative-date deadline definition. OffsetDays
// and GraceDays are plain Go ints, so the "must be an integer, not a
// boolean" constraint spec.md places on them is enforced for free by
// encoding/json's static typing (a JSON `true`/`false` fails to decode
// into an int field) rather than needing a runtime isinstance check the
// way the dynamically-typed original does.
type DeadlineSpec struct {
	Type       string `json:"type"`
	Reference  string `json:"reference,omitempty"`
	OffsetDays int    `json:"offset_days"`
	GraceDays  int    `json:"grace_days,omitempty"`
}

// TaskDef is one template task.
type TaskDef struct {
	Title       string   `json:"title"`
	Eligibility *Rule    `json:"eligibility,omitempty"`
	Deadline    DeadlineSpec `json:"deadline"`
	Category    string   `json:"category,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Recommendation is an optional template entry with its own eligibility
// rule. It is decoded with the template; GeneratePlan does not evaluate
// it and never materializes it into a Plan task.
type Recommendation struct {
	Eligibility *Rule `json:"eligibility,omitempty"`
}

// Template is the immutable, storage-loaded workflow definition.
type Template struct {
	TemplateID      string                     `json:"template_id"`
	Version         int                        `json:"version"`
	EventDateKey    string                     `json:"event_date_key"`
	Tasks           map[string]TaskDef         `json:"tasks"`
	Graph           Graph                      `json:"graph"`
	Recommendations map[string]Recommendation  `json:"recommendations,omitempty"`
}

// Graph is the template's node/edge declaration.
type Graph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// TaskPlanItem is one task's materialized planner output.
type TaskPlanItem struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	RelativeDays int                    `json:"relative_days"`
	Deadline     string                 `json:"deadline"`
	DependsOn    []string               `json:"depends_on"`
	Meta         map[string]interface{} `json:"meta"`
}

// Plan is the planner engine's full output artefact, in topological
// order.
type Plan struct {
	WorkflowID string         `json:"workflow_id"`
	EventDate  string         `json:"event_date"`
	Tasks      []TaskPlanItem `json:"tasks"`
}

// GeneratePlan orchestrates C1 (rule evaluation), C2 (deadline
// resolution), and C4 (topological sort) over a template and a flat
// fact map, producing a Plan whose byte-serialization is stable for
// fixed inputs.
func GeneratePlan(tmpl *Template, facts map[string]interface{}) (*Plan, error) {
	if tmpl.TemplateID == "" {
		return nil, newInputError("template_id must be a non-empty string")
	}
	if tmpl.EventDateKey == "" {
		return nil, newInputError("event_date_key must be a non-empty string")
	}

	taskIDs := make([]string, 0, len(tmpl.Tasks))
	for id := range tmpl.Tasks {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)

	knownTaskIDs := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		knownTaskIDs[id] = true
	}
	for _, e := range tmpl.Graph.Edges {
		if !knownTaskIDs[e.From] || !knownTaskIDs[e.To] {
			return nil, newDependencyError("dependency references unknown workflow task id")
		}
	}

	eventDateRaw, ok := facts[tmpl.EventDateKey]
	if !ok {
		return nil, newInputError("missing event date fact %q", tmpl.EventDateKey)
	}
	eventDateStr, ok := eventDateRaw.(string)
	if !ok {
		return nil, newInputError("event date fact %q must be a string", tmpl.EventDateKey)
	}
	eventDate, err := ParseISODate(eventDateStr)
	if err != nil {
		return nil, err
	}

	activeTaskIDs := make([]string, 0, len(taskIDs))
	active := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		task := tmpl.Tasks[id]
		eligibility := task.Eligibility
		if eligibility == nil {
			eligibility = AllRule()
		}
		ok, err := Eval(eligibility, facts)
		if err != nil {
			return nil, err
		}
		if ok {
			activeTaskIDs = append(activeTaskIDs, id)
			active[id] = true
		}
	}

	dependsOn := make(map[string][]string, len(activeTaskIDs))
	for _, id := range activeTaskIDs {
		dependsOn[id] = []string{}
	}
	var activeEdges []Edge
	for _, e := range tmpl.Graph.Edges {
		if !active[e.To] {
			continue
		}
		if active[e.From] {
			dependsOn[e.To] = append(dependsOn[e.To], e.From)
			activeEdges = append(activeEdges, e)
		}
	}
	for _, id := range activeTaskIDs {
		sort.Strings(dependsOn[id])
	}

	orderedIDs, err := TopologicalSort(activeTaskIDs, activeEdges)
	if err != nil {
		return nil, err
	}

	items := make(map[string]TaskPlanItem, len(activeTaskIDs))
	for _, id := range activeTaskIDs {
		task := tmpl.Tasks[id]
		if task.Deadline.Type != "relative_days" {
			return nil, newInputError("tasks.%s.deadline.type must be 'relative_days'", id)
		}
		due := Deadline(eventDate, task.Deadline.OffsetDays, task.Deadline.GraceDays)
		items[id] = TaskPlanItem{
			ID:           id,
			Title:        task.Title,
			RelativeDays: task.Deadline.OffsetDays,
			Deadline:     FormatISODate(due),
			DependsOn:    dependsOn[id],
			Meta:         map[string]interface{}{},
		}
	}

	orderedItems := make([]TaskPlanItem, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		orderedItems = append(orderedItems, items[id])
	}

	return &Plan{
		WorkflowID: tmpl.TemplateID,
		EventDate:  FormatISODate(eventDate),
		Tasks:      orderedItems,
	}, nil
}
