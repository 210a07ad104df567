package domain

type NodeKind string

const (
	NodeKindTrigger     NodeKind = "trigger"
	NodeKindHTTP        NodeKind = "http"
	NodeKindConditional NodeKind = "conditional"
	NodeKindBatch       NodeKind = "batch"
	NodeKindNoOp        NodeKind = "noop"
	NodeKindRespond     NodeKind = "respond"
	NodeKindUnknown     NodeKind = "unknown"
)

type NodePosition struct {
	X float64
	Y float64
}

// CredentialRef points a node at a credential by id, keyed on the node by
// credential type.
type CredentialRef struct {
	ID   string
	Name string
}

// Node is a single unit of work in a workflow graph. Parameters are opaque to
// the deployer and may contain expressions the engine resolves at run time.
type Node struct {
	ID          string
	Name        string
	Kind        NodeKind
	Type        string
	TypeVersion float64
	Parameters  map[string]any
	Position    NodePosition
	Credentials map[string]CredentialRef
	WebhookID   string
}

func (n Node) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n Node) clone() Node {
	out := n
	out.Parameters = cloneMap(n.Parameters)

	if n.Credentials != nil {
		out.Credentials = make(map[string]CredentialRef, len(n.Credentials))
		for k, v := range n.Credentials {
			out.Credentials[k] = v
		}
	}

	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(value))
		for i, item := range value {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return value
	}
}

// Connection is a directed edge from an output port of one node to an input
// port of another. Nodes are referenced by name.
type Connection struct {
	Source     string
	SourcePort int
	Target     string
	TargetPort int
}
