package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegressionExpectation is the `expect` block of a tc_*.yaml fixture.
type RegressionExpectation struct {
	TasksPresent           []string            `yaml:"tasks_present"`
	TasksAbsent            []string            `yaml:"tasks_absent"`
	BlockedInitially       map[string][]string `yaml:"blocked_initially"`
	Deadlines              map[string]string   `yaml:"deadlines"`
	RecommendationsPresent []string            `yaml:"recommendations_present"`
	RecommendationsAbsent  []string            `yaml:"recommendations_absent"`
}

// RegressionCase is one `tests/tc_*.yaml` fixture sitting beside a
// template's compiled.json.
type RegressionCase struct {
	Name            string
	TemplateID      string                 `yaml:"template_id"`
	TemplateVersion int                    `yaml:"template_version"`
	Facts           map[string]interface{} `yaml:"facts"`
	Expect          RegressionExpectation  `yaml:"expect"`
}

// LoadRegressionCases reads every tests/tc_*.yaml fixture sitting
// beside templateKey's compiled.json, in filename order.
func (r *Repository) LoadRegressionCases(templateKey string) ([]RegressionCase, error) {
	if !KeyPattern.MatchString(templateKey) {
		return nil, &NotFoundError{TemplateKey: templateKey}
	}
	event, version, _ := strings.Cut(templateKey, "/")
	testsDir := filepath.Join(r.root, event, version, "tests")

	entries, err := os.ReadDir(testsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "tc_") && strings.HasSuffix(entry.Name(), ".yaml") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	cases := make([]RegressionCase, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(testsDir, name))
		if err != nil {
			return nil, err
		}
		var tc RegressionCase
		if err := yaml.Unmarshal(raw, &tc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tc.Name = name
		cases = append(cases, tc)
	}
	return cases, nil
}
