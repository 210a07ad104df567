package catalog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flowbaker/deployer/pkg/domain"
)

var jsonHeaders = []Header{
	{Name: "Prefer", Value: "return=representation"},
	{Name: "Content-Type", Value: "application/json"},
}

const generationPrompt = `You are a social media content expert for South African SMEs. Generate engaging, professional content. Use South African English. Include hashtags. Keep B2B tone.`

func contentGenerator(p Params, creds credentials) (*domain.WorkflowGraph, error) {
	name := workflowName(p, "AI Content Generator")
	b := domain.NewGraphBuilder(WorkflowID(name), name, settings(p))

	trigger := WebhookTrigger{
		ID:       "wh-gen",
		Name:     "Webhook Trigger",
		Method:   http.MethodPost,
		Path:     "generate-content",
		Position: at(0, 0),
	}

	generate := HTTPCall{
		ID:     "claude-gen",
		Name:   "Claude AI Generate",
		Method: http.MethodPost,
		URL:    "https://api.anthropic.com/v1/messages",
		Headers: []Header{
			{Name: "anthropic-version", Value: "2023-06-01"},
			{Name: "content-type", Value: "application/json"},
		},
		JSONBody: fmt.Sprintf(`={"model":%q,"max_tokens":1500,"system":%q,"messages":[{"role":"user","content":"Generate a {{ $json.body.contentType || 'post' }} for {{ $json.body.platforms ? $json.body.platforms.join(', ') : 'linkedin' }}. Topic: {{ $json.body.prompt }}. Tone: {{ $json.body.tone || 'professional' }}"}]}`,
			p.Model, generationPrompt),
		Credential: &creds.llm,
		Timeout:    30 * time.Second,
		Position:   at(250, 0),
	}

	save := HTTPCall{
		ID:         "save-post",
		Name:       "Save to Supabase",
		Method:     http.MethodPost,
		URL:        p.APIBaseURL + "/rest/v1/social_posts",
		Headers:    jsonHeaders,
		JSONBody:   `={{ JSON.stringify({ organization_id: $input.first().json.body.organizationId, content: $json.content[0].text, platforms: $input.first().json.body.platforms || ["linkedin"], status: "draft" }) }}`,
		Credential: &creds.database,
		Timeout:    10 * time.Second,
		Position:   at(500, 0),
	}

	respond := Respond{
		ID:       "resp-ok",
		Name:     "Success Response",
		Body:     `={{ JSON.stringify({ success: true, data: { content: $json[0] ? $json[0].content : $json.content, post_id: $json[0] ? $json[0].id : "saved" } }) }}`,
		Position: at(750, 0),
	}

	if err := addNodes(b, trigger.Node(name), generate.Node(), save.Node(), respond.Node()); err != nil {
		return nil, err
	}

	if err := chain(b, trigger.Name, generate.Name, save.Name, respond.Name); err != nil {
		return nil, err
	}

	return b.Build()
}

func queueProcessor(p Params, creds credentials) (*domain.WorkflowGraph, error) {
	name := workflowName(p, "Content Queue Processor")
	b := domain.NewGraphBuilder(WorkflowID(name), name, settings(p))

	schedule, err := ScheduleTrigger{
		ID:       "cron-queue",
		Name:     "Every 15 Minutes",
		Minutes:  15,
		Position: at(0, 0),
	}.Node()
	if err != nil {
		return nil, err
	}

	fetch := HTTPCall{
		ID:         "fetch-due",
		Name:       "Fetch Due Posts",
		URL:        p.APIBaseURL + "/rest/v1/social_posts?status=eq.scheduled&scheduled_for=lt.now()&select=*&order=scheduled_for.asc&limit=50",
		Credential: &creds.database,
		Timeout:    10 * time.Second,
		Position:   at(250, 0),
	}

	hasPosts := Conditional{
		ID:        "has-posts",
		Name:      "Has Due Posts?",
		Left:      "={{ $json.length || 0 }}",
		Operator:  "gt",
		ValueType: "number",
		Right:     "0",
		Position:  at(500, 0),
	}

	each := BatchIterator{
		ID:       "batch",
		Name:     "Process Each Post",
		Position: at(750, -100),
	}

	publish := HTTPCall{
		ID:         "mark-published",
		Name:       "Mark as Published",
		Method:     http.MethodPatch,
		URL:        "=" + p.APIBaseURL + "/rest/v1/social_posts?id=eq.{{ $json.id }}",
		Headers:    jsonHeaders,
		JSONBody:   `={"status": "published", "published_at": "{{ $now.toISO() }}"}`,
		Credential: &creds.database,
		Timeout:    10 * time.Second,
		Position:   at(1000, -100),
	}

	idle := NoOp{
		ID:       "no-posts",
		Name:     "No Posts Due",
		Position: at(750, 100),
	}

	if err := addNodes(b, schedule, fetch.Node(), hasPosts.Node(), each.Node(), publish.Node(), idle.Node()); err != nil {
		return nil, err
	}

	if err := chain(b, schedule.Name, fetch.Name, hasPosts.Name); err != nil {
		return nil, err
	}

	connections := []domain.Connection{
		{Source: hasPosts.Name, SourcePort: 0, Target: each.Name},
		{Source: hasPosts.Name, SourcePort: 1, Target: idle.Name},
		{Source: each.Name, SourcePort: BatchOutputLoop, Target: publish.Name},
		{Source: publish.Name, Target: each.Name},
	}

	for _, c := range connections {
		if err := b.AddConnection(c); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

func analyticsCollector(p Params, creds credentials) (*domain.WorkflowGraph, error) {
	name := workflowName(p, "Analytics Collector")
	b := domain.NewGraphBuilder(WorkflowID(name), name, settings(p))

	sixAM := 6
	schedule, err := ScheduleTrigger{
		ID:            "cron-analytics",
		Name:          "Daily 6 AM",
		Hours:         24,
		TriggerAtHour: &sixAM,
		Position:      at(0, 0),
	}.Node()
	if err != nil {
		return nil, err
	}

	fetch := HTTPCall{
		ID:         "fetch-published",
		Name:       "Fetch Recent Posts",
		URL:        p.APIBaseURL + "/rest/v1/social_posts?status=eq.published&published_at=gte.now()-interval'24 hours'&select=id,organization_id,platforms,content,published_at",
		Credential: &creds.database,
		Timeout:    10 * time.Second,
		Position:   at(250, 0),
	}

	save := HTTPCall{
		ID:         "save-snapshot",
		Name:       "Save Analytics Snapshot",
		Method:     http.MethodPost,
		URL:        p.APIBaseURL + "/rest/v1/analytics_snapshots",
		Headers:    jsonHeaders,
		JSONBody:   `={{ JSON.stringify({ snapshot_date: $now.format("yyyy-MM-dd"), total_posts_24h: $input.all().length, platforms_used: [...new Set($input.all().flatMap(i => i.json.platforms || []))], collected_at: $now.toISO() }) }}`,
		Credential: &creds.database,
		Timeout:    10 * time.Second,
		Position:   at(500, 0),
	}

	if err := addNodes(b, schedule, fetch.Node(), save.Node()); err != nil {
		return nil, err
	}

	if err := chain(b, schedule.Name, fetch.Name, save.Name); err != nil {
		return nil, err
	}

	return b.Build()
}
