package catalog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/flowbaker/deployer/pkg/n8n"
	"github.com/robfig/cron/v3"
)

// Header is a static request header of an HTTP call.
type Header struct {
	Name  string
	Value string
}

type WebhookTrigger struct {
	ID       string
	Name     string
	Method   string
	Path     string
	Position domain.NodePosition
}

func (t WebhookTrigger) Node(workflowName string) domain.Node {
	return domain.Node{
		ID:          t.ID,
		Name:        t.Name,
		Kind:        domain.NodeKindTrigger,
		Type:        n8n.TypeWebhook,
		TypeVersion: 2,
		Position:    t.Position,
		WebhookID:   webhookID(workflowName, t.Name),
		Parameters: map[string]any{
			"httpMethod":   t.Method,
			"path":         t.Path,
			"responseMode": "responseNode",
			"options":      map[string]any{},
		},
	}
}

// ScheduleTrigger fires on a fixed interval. Exactly one of Minutes, Hours
// or Cron should be set.
type ScheduleTrigger struct {
	ID            string
	Name          string
	Minutes       int
	Hours         int
	TriggerAtHour *int
	Cron          string
	Position      domain.NodePosition
}

func (t ScheduleTrigger) Node() (domain.Node, error) {
	var interval map[string]any

	switch {
	case t.Cron != "":
		if _, err := cron.ParseStandard(t.Cron); err != nil {
			return domain.Node{}, &domain.ValidationError{Node: t.Name, Reason: fmt.Sprintf("invalid cron expression %q: %v", t.Cron, err)}
		}
		interval = map[string]any{"field": "cronExpression", "expression": t.Cron}
	case t.Minutes > 0:
		interval = map[string]any{"field": "minutes", "minutesInterval": t.Minutes}
	case t.Hours > 0:
		interval = map[string]any{"field": "hours", "hoursInterval": t.Hours}
		if t.TriggerAtHour != nil {
			if *t.TriggerAtHour < 0 || *t.TriggerAtHour > 23 {
				return domain.Node{}, &domain.ValidationError{Node: t.Name, Reason: fmt.Sprintf("trigger hour %d out of range", *t.TriggerAtHour)}
			}
			interval["triggerAtHour"] = *t.TriggerAtHour
		}
	default:
		return domain.Node{}, &domain.ValidationError{Node: t.Name, Reason: "schedule needs a minutes, hours or cron interval"}
	}

	return domain.Node{
		ID:          t.ID,
		Name:        t.Name,
		Kind:        domain.NodeKindTrigger,
		Type:        n8n.TypeScheduleTrigger,
		TypeVersion: 1.2,
		Position:    t.Position,
		Parameters: map[string]any{
			"rule": map[string]any{
				"interval": []any{interval},
			},
		},
	}, nil
}

type HTTPCall struct {
	ID         string
	Name       string
	Method     string
	URL        string
	JSONBody   string
	Headers    []Header
	Credential *domain.Credential
	Timeout    time.Duration
	Position   domain.NodePosition
}

func (c HTTPCall) Node() domain.Node {
	parameters := map[string]any{
		"url": c.URL,
	}

	if c.Method != "" && c.Method != http.MethodGet {
		parameters["method"] = c.Method
	}

	var credentials map[string]domain.CredentialRef
	if c.Credential != nil {
		parameters["authentication"] = "genericCredentialType"
		parameters["genericAuthType"] = c.Credential.Type
		credentials = map[string]domain.CredentialRef{
			c.Credential.Type: c.Credential.Ref(),
		}
	}

	if len(c.Headers) > 0 {
		headers := make([]any, len(c.Headers))
		for i, h := range c.Headers {
			headers[i] = map[string]any{"name": h.Name, "value": h.Value}
		}
		parameters["sendHeaders"] = true
		parameters["headerParameters"] = map[string]any{"parameters": headers}
	}

	if c.JSONBody != "" {
		parameters["sendBody"] = true
		parameters["specifyBody"] = "json"
		parameters["jsonBody"] = c.JSONBody
	}

	options := map[string]any{}
	if c.Timeout > 0 {
		options["timeout"] = int(c.Timeout / time.Millisecond)
	}
	parameters["options"] = options

	return domain.Node{
		ID:          c.ID,
		Name:        c.Name,
		Kind:        domain.NodeKindHTTP,
		Type:        n8n.TypeHTTPRequest,
		TypeVersion: 4.2,
		Position:    c.Position,
		Parameters:  parameters,
		Credentials: credentials,
	}
}

// Conditional compares an expression against a value. Output 0 is the true
// branch and output 1 the false branch.
type Conditional struct {
	ID        string
	Name      string
	Left      string
	Operator  string
	ValueType string
	Right     string
	Position  domain.NodePosition
}

func (c Conditional) Node() domain.Node {
	valueType := c.ValueType
	if valueType == "" {
		valueType = "string"
	}

	return domain.Node{
		ID:          c.ID,
		Name:        c.Name,
		Kind:        domain.NodeKindConditional,
		Type:        n8n.TypeIf,
		TypeVersion: 2.2,
		Position:    c.Position,
		Parameters: map[string]any{
			"conditions": map[string]any{
				"options": map[string]any{
					"caseSensitive":  true,
					"leftValue":      "",
					"typeValidation": "strict",
				},
				"conditions": []any{
					map[string]any{
						"id":         c.ID,
						"leftValue":  c.Left,
						"rightValue": c.Right,
						"operator": map[string]any{
							"type":      valueType,
							"operation": c.Operator,
						},
					},
				},
				"combinator": "and",
			},
			"options": map[string]any{},
		},
	}
}

// BatchIterator splits items into batches. Output 0 fires once all batches
// are done; output 1 fires per batch and is where the loop body hangs.
type BatchIterator struct {
	ID       string
	Name     string
	Position domain.NodePosition
}

const (
	BatchOutputDone = 0
	BatchOutputLoop = 1
)

func (b BatchIterator) Node() domain.Node {
	return domain.Node{
		ID:          b.ID,
		Name:        b.Name,
		Kind:        domain.NodeKindBatch,
		Type:        n8n.TypeSplitInBatches,
		TypeVersion: 3,
		Position:    b.Position,
		Parameters: map[string]any{
			"options": map[string]any{"reset": false},
		},
	}
}

type NoOp struct {
	ID       string
	Name     string
	Position domain.NodePosition
}

func (n NoOp) Node() domain.Node {
	return domain.Node{
		ID:          n.ID,
		Name:        n.Name,
		Kind:        domain.NodeKindNoOp,
		Type:        n8n.TypeNoOp,
		TypeVersion: 1,
		Position:    n.Position,
		Parameters:  map[string]any{},
	}
}

type Respond struct {
	ID       string
	Name     string
	Body     string
	Position domain.NodePosition
}

func (r Respond) Node() domain.Node {
	return domain.Node{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        domain.NodeKindRespond,
		Type:        n8n.TypeRespondToWebhook,
		TypeVersion: 1.1,
		Position:    r.Position,
		Parameters: map[string]any{
			"options":      map[string]any{},
			"respondWith":  "json",
			"responseBody": r.Body,
		},
	}
}

func at(x, y float64) domain.NodePosition {
	return domain.NodePosition{X: x, Y: y}
}
