package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed graph or batch. It is always a local
// defect and aborts a deployment.
type ValidationError struct {
	Graph  string
	Node   string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid workflow")

	if e.Graph != "" {
		fmt.Fprintf(&b, " %q", e.Graph)
	}

	if e.Node != "" {
		fmt.Fprintf(&b, " node %q", e.Node)
	}

	b.WriteString(": ")
	b.WriteString(e.Reason)

	return b.String()
}

type WarningKind string

const (
	WarningOrphan      WarningKind = "orphan"
	WarningUnreachable WarningKind = "unreachable"
	WarningNoTrigger   WarningKind = "no_trigger"
)

type ValidationWarning struct {
	Graph   string
	Node    string
	Kind    WarningKind
	Message string
}

func (w ValidationWarning) String() string {
	if w.Node == "" {
		return fmt.Sprintf("%s: %s", w.Graph, w.Message)
	}

	return fmt.Sprintf("%s: node %q %s", w.Graph, w.Node, w.Message)
}

type ValidationReport struct {
	Graph    string
	Warnings []ValidationWarning
}

func (r ValidationReport) OK() bool {
	return len(r.Warnings) == 0
}

// Validate flags dead weight in the graph. Such graphs still import, so
// nothing here is a hard failure.
func (g *WorkflowGraph) Validate() ValidationReport {
	report := ValidationReport{Graph: g.name}

	inbound := map[string]int{}
	outbound := map[string]int{}
	for _, c := range g.connections {
		outbound[c.Source]++
		inbound[c.Target]++
	}

	reachable := g.reachableFromTriggers()
	hasTrigger := false

	for _, n := range g.nodes {
		if n.IsTrigger() {
			hasTrigger = true
			continue
		}

		if inbound[n.Name] == 0 && outbound[n.Name] == 0 {
			report.Warnings = append(report.Warnings, ValidationWarning{
				Graph:   g.name,
				Node:    n.Name,
				Kind:    WarningOrphan,
				Message: "has no connections",
			})
			continue
		}

		if _, ok := reachable[n.Name]; !ok {
			report.Warnings = append(report.Warnings, ValidationWarning{
				Graph:   g.name,
				Node:    n.Name,
				Kind:    WarningUnreachable,
				Message: "is not reachable from any trigger",
			})
		}
	}

	if !hasTrigger {
		report.Warnings = append(report.Warnings, ValidationWarning{
			Graph:   g.name,
			Kind:    WarningNoTrigger,
			Message: "workflow has no trigger node and will never run on its own",
		})
	}

	return report
}

func (g *WorkflowGraph) reachableFromTriggers() map[string]struct{} {
	adjacency := map[string][]string{}
	for _, c := range g.connections {
		adjacency[c.Source] = append(adjacency[c.Source], c.Target)
	}

	seen := map[string]struct{}{}
	var queue []string

	for _, n := range g.nodes {
		if n.IsTrigger() {
			seen[n.Name] = struct{}{}
			queue = append(queue, n.Name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	return seen
}
