// Package template loads and validates life-event workflow templates
// from the compiled JSON artefacts under a workflows root directory.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lifeplan/service/internal/domain/planner"
)

// KeyPattern matches a valid template key, e.g. "birth_de/v1".
var KeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+/v[0-9]+$`)

// NotFoundError is returned when template_key is malformed or no
// compiled artefact exists for it.
type NotFoundError struct {
	TemplateKey string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.TemplateKey)
}

// Repository loads compiled workflow templates from disk.
type Repository struct {
	root string
}

// NewRepository creates a Repository rooted at workflowsRoot, the
// directory containing one subdirectory per event key.
func NewRepository(workflowsRoot string) *Repository {
	return &Repository{root: workflowsRoot}
}

// Load parses templateKey, reads its compiled.json, decodes it and
// validates its graph via planner.ValidateGraph. Returns *NotFoundError
// for an unknown key or missing file, and the underlying
// planner.InputError/DependencyError/CycleError for a malformed graph.
func (r *Repository) Load(templateKey string) (*planner.Template, error) {
	if !KeyPattern.MatchString(templateKey) {
		return nil, &NotFoundError{TemplateKey: templateKey}
	}

	event, version, _ := strings.Cut(templateKey, "/")
	path := filepath.Join(r.root, event, version, "compiled.json")

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{TemplateKey: templateKey}
		}
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("template %q: invalid JSON: %w", templateKey, err)
	}
	if _, ok := generic.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("template %q: root must be an object", templateKey)
	}

	tmpl := new(planner.Template)
	if err := json.Unmarshal(raw, tmpl); err != nil {
		return nil, fmt.Errorf("template %q: %w", templateKey, err)
	}

	taskKeys := make([]string, 0, len(tmpl.Tasks))
	for k := range tmpl.Tasks {
		taskKeys = append(taskKeys, k)
	}
	sort.Strings(taskKeys)

	if err := planner.ValidateGraph(tmpl.Graph.Nodes, taskKeys, tmpl.Graph.Edges); err != nil {
		return nil, err
	}

	return tmpl, nil
}
