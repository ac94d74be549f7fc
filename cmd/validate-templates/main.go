// validate-templates walks a workflows root for compiled.json
// artefacts, loads each one through the same Repository the server
// uses at runtime, and replays any sibling tests/tc_*.yaml regression
// fixtures through the planner engine. A broken template or a stale
// fixture is caught at build/deploy time rather than on a user's first
// plan creation.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lifeplan/service/internal/application/template"
	"github.com/lifeplan/service/internal/domain/planner"
)

type issue struct {
	path    string
	message string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <workflows-root>\n", os.Args[0])
	}
	flag.Parse()

	root := flag.Arg(0)
	if root == "" {
		root = "./workflows"
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolving %q: %v\n", root, err)
		os.Exit(1)
	}

	issues, err := validateAll(absRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(issues) == 0 {
		fmt.Printf("OK: all workflow templates and regression fixtures valid under %s\n", absRoot)
		return
	}

	fmt.Printf("FAILED: %d issue(s) under %s\n\n", len(issues), absRoot)
	for _, iss := range issues {
		fmt.Printf("- %s: %s\n", iss.path, iss.message)
	}
	os.Exit(1)
}

func validateAll(root string) ([]issue, error) {
	repo := template.NewRepository(root)

	var compiledPaths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "compiled.json" {
			compiledPaths = append(compiledPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if len(compiledPaths) == 0 {
		return []issue{{path: root, message: "no compiled.json files found"}}, nil
	}

	var issues []issue
	for _, path := range compiledPaths {
		key, err := templateKeyFor(root, path)
		if err != nil {
			issues = append(issues, issue{path: path, message: err.Error()})
			continue
		}

		tmpl, err := repo.Load(key)
		if err != nil {
			issues = append(issues, issue{path: path, message: err.Error()})
			continue
		}

		cases, err := repo.LoadRegressionCases(key)
		if err != nil {
			issues = append(issues, issue{path: path, message: fmt.Sprintf("loading regression fixtures: %v", err)})
			continue
		}
		for _, tc := range cases {
			for _, msg := range replayCase(tmpl, tc) {
				issues = append(issues, issue{path: key + "/tests/" + tc.Name, message: msg})
			}
		}
	}

	return issues, nil
}

// replayCase runs tc's facts through the planner engine and diffs the
// resulting plan against its expect block. Recommendations are not
// materialized by GeneratePlan (spec.md §4.5 emits only tasks), so
// recommendations_present/absent in a fixture are accepted but not
// checked here.
func replayCase(tmpl *planner.Template, tc template.RegressionCase) []string {
	plan, err := planner.GeneratePlan(tmpl, tc.Facts)
	if err != nil {
		return []string{fmt.Sprintf("GeneratePlan failed: %v", err)}
	}

	present := make(map[string]*planner.TaskPlanItem, len(plan.Tasks))
	for i := range plan.Tasks {
		present[plan.Tasks[i].ID] = &plan.Tasks[i]
	}

	var problems []string

	for _, id := range tc.Expect.TasksPresent {
		if _, ok := present[id]; !ok {
			problems = append(problems, fmt.Sprintf("expected task %q present, but it was pruned", id))
		}
	}
	for _, id := range tc.Expect.TasksAbsent {
		if _, ok := present[id]; ok {
			problems = append(problems, fmt.Sprintf("expected task %q absent, but it was generated", id))
		}
	}
	for id, wantBlockedBy := range tc.Expect.BlockedInitially {
		item, ok := present[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("expected task %q to check blocked_initially, but it was pruned", id))
			continue
		}
		if !equalSorted(item.DependsOn, wantBlockedBy) {
			problems = append(problems, fmt.Sprintf("task %q depends_on = %v, expected %v", id, item.DependsOn, wantBlockedBy))
		}
	}
	for id, wantDeadline := range tc.Expect.Deadlines {
		item, ok := present[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("expected task %q to check deadline, but it was pruned", id))
			continue
		}
		if item.Deadline != wantDeadline {
			problems = append(problems, fmt.Sprintf("task %q deadline = %q, expected %q", id, item.Deadline, wantDeadline))
		}
	}

	return problems
}

func equalSorted(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a2, b2 := append([]string(nil), a...), append([]string(nil), b...)
	sort.Strings(a2)
	sort.Strings(b2)
	for i := range a2 {
		if a2[i] != b2[i] {
			return false
		}
	}
	return true
}

// templateKeyFor recovers the "event/version" key Repository.Load
// expects from a compiled.json path nested two directories below root.
func templateKeyFor(root, compiledPath string) (string, error) {
	rel, err := filepath.Rel(root, compiledPath)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("unexpected layout %q, expected <event>/<version>/compiled.json", rel)
	}
	return parts[0] + "/" + parts[1], nil
}
