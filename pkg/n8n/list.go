package n8n

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowbaker/deployer/pkg/domain"
)

var (
	ErrNoWorkflowList = errors.New("no workflow list in export output")
)

// WorkflowSummary is what the deployer needs from one exported workflow.
type WorkflowSummary struct {
	ID         string
	Name       string
	Active     bool
	NodeCount  int
	HasTrigger bool
}

// ActiveEligible reports whether the workflow is active or could be activated,
// which the engine only allows for workflows with a trigger.
func (s WorkflowSummary) ActiveEligible() bool {
	return s.Active || s.HasTrigger
}

func (s WorkflowSummary) State() string {
	if s.Active {
		return "active"
	}

	return "inactive"
}

// ParseWorkflowList parses the output of `n8n export:workflow --all`. The CLI
// may print log lines before the JSON array; they are skipped.
func ParseWorkflowList(output []byte) ([]WorkflowSummary, error) {
	workflows, err := decodeWorkflowArray(output)
	if err != nil {
		return nil, err
	}

	summaries := make([]WorkflowSummary, len(workflows))
	for i, w := range workflows {
		summary := WorkflowSummary{
			ID:        w.ID,
			Name:      w.Name,
			Active:    w.Active,
			NodeCount: len(w.Nodes),
		}

		for _, n := range w.Nodes {
			if KindForType(n.Type) == domain.NodeKindTrigger {
				summary.HasTrigger = true
				break
			}
		}

		summaries[i] = summary
	}

	return summaries, nil
}

// FindByName returns the first summary with the given name.
func FindByName(summaries []WorkflowSummary, name string) (WorkflowSummary, bool) {
	for _, s := range summaries {
		if s.Name == name {
			return s, true
		}
	}

	return WorkflowSummary{}, false
}

// decodeWorkflowArray looks for the array at the start of a line. Log lines
// such as "[info] Loading" or "Loading [] packages" are skipped, as is any
// candidate followed by more text on the line where it ends.
func decodeWorkflowArray(output []byte) ([]Workflow, error) {
	var lastErr error

	for lineStart := 0; lineStart < len(output); {
		line := output[lineStart:]
		if end := bytes.IndexByte(line, '\n'); end >= 0 {
			line = line[:end+1]
		}

		trimmed := bytes.TrimLeft(line, " \t")
		if bytes.HasPrefix(trimmed, []byte("[")) {
			start := lineStart + len(line) - len(trimmed)

			workflows, err := decodeArrayAt(output[start:])
			if err == nil {
				return workflows, nil
			}

			lastErr = err
		}

		lineStart += len(line)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWorkflowList, lastErr)
	}

	return nil, ErrNoWorkflowList
}

func decodeArrayAt(data []byte) ([]Workflow, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	var workflows []Workflow
	if err := decoder.Decode(&workflows); err != nil {
		return nil, err
	}

	rest := data[decoder.InputOffset():]
	if end := bytes.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}

	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("unexpected text after array: %q", bytes.TrimSpace(rest))
	}

	return workflows, nil
}
