package n8n

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Workflow is one entry of an import:workflow / export:workflow JSON array.
type Workflow struct {
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name"`
	Active      bool        `json:"active"`
	Nodes       []Node      `json:"nodes"`
	Connections Connections `json:"connections"`
	Settings    Settings    `json:"settings"`
}

type Node struct {
	Parameters  map[string]any           `json:"parameters"`
	Type        string                   `json:"type"`
	TypeVersion float64                  `json:"typeVersion"`
	Position    []float64                `json:"position"`
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	WebhookID   string                   `json:"webhookId,omitempty"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
}

type CredentialRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Settings struct {
	ExecutionOrder string `json:"executionOrder,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

type Target struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// SourceConnections holds the outputs of one source node. Main[i] lists the
// targets of output i in fan-out order.
type SourceConnections struct {
	Node string
	Main [][]Target
}

// Connections keeps source nodes in document order. The engine keys the
// object by node name, and a Go map would lose that order.
type Connections []SourceConnections

type outputs struct {
	Main [][]Target `json:"main"`
}

func (c Connections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, source := range c {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(source.Node)
		if err != nil {
			return nil, err
		}

		main := make([][]Target, len(source.Main))
		for port, targets := range source.Main {
			if targets == nil {
				targets = []Target{}
			}
			main[port] = targets
		}

		value, err := json.Marshal(outputs{Main: main})
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (c *Connections) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("connections: invalid JSON")
	}

	result := gjson.ParseBytes(data)
	if result.Type == gjson.Null {
		*c = nil
		return nil
	}

	if !result.IsObject() {
		return fmt.Errorf("connections: expected object, got %s", result.Type)
	}

	var (
		parsed Connections
		err    error
	)

	result.ForEach(func(key, value gjson.Result) bool {
		var out outputs
		if err = json.Unmarshal([]byte(value.Raw), &out); err != nil {
			err = fmt.Errorf("connections of %q: %w", key.String(), err)
			return false
		}

		parsed = append(parsed, SourceConnections{Node: key.String(), Main: out.Main})
		return true
	})

	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// Credential is one entry of an import:credentials JSON array.
type Credential struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}
