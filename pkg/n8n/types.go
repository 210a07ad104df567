// Package n8n renders workflow graphs and credentials into the n8n CLI import
// format and parses the engine's export output back.
package n8n

import "github.com/flowbaker/deployer/pkg/domain"

const (
	TypeWebhook           = "n8n-nodes-base.webhook"
	TypeScheduleTrigger   = "n8n-nodes-base.scheduleTrigger"
	TypeManualTrigger     = "n8n-nodes-base.manualTrigger"
	TypeCronTrigger       = "n8n-nodes-base.cron"
	TypeHTTPRequest       = "n8n-nodes-base.httpRequest"
	TypeIf                = "n8n-nodes-base.if"
	TypeSplitInBatches    = "n8n-nodes-base.splitInBatches"
	TypeNoOp              = "n8n-nodes-base.noOp"
	TypeRespondToWebhook  = "n8n-nodes-base.respondToWebhook"
	ConnectionTypeMain    = "main"
	DefaultExecutionOrder = domain.ExecutionOrderV1
)

var kindsByType = map[string]domain.NodeKind{
	TypeWebhook:          domain.NodeKindTrigger,
	TypeScheduleTrigger:  domain.NodeKindTrigger,
	TypeManualTrigger:    domain.NodeKindTrigger,
	TypeCronTrigger:      domain.NodeKindTrigger,
	TypeHTTPRequest:      domain.NodeKindHTTP,
	TypeIf:               domain.NodeKindConditional,
	TypeSplitInBatches:   domain.NodeKindBatch,
	TypeNoOp:             domain.NodeKindNoOp,
	TypeRespondToWebhook: domain.NodeKindRespond,
}

// KindForType maps an engine node type tag to its node kind.
func KindForType(nodeType string) domain.NodeKind {
	if kind, ok := kindsByType[nodeType]; ok {
		return kind
	}

	return domain.NodeKindUnknown
}
