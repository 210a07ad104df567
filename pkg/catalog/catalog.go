// Package catalog builds the set of workflow graphs and placeholder
// credentials deployed to the remote engine.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/google/uuid"
)

const (
	DefaultNamePrefix = "DraggonnB"
	DefaultTimezone   = "Africa/Johannesburg"
	DefaultModel      = "claude-sonnet-4-20250514"
)

// namespace seeds the name-based ids so that every build yields the same
// workflow and webhook ids.
var namespace = uuid.MustParse("6f1c2b8e-5d4a-4e0b-9a8e-3c1d7f2b9e10")

type Params struct {
	APIBaseURL string
	Timezone   string
	Service    string
	NamePrefix string
	Model      string
}

func (p Params) withDefaults() Params {
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}

	if p.NamePrefix == "" {
		p.NamePrefix = DefaultNamePrefix
	}

	if p.Model == "" {
		p.Model = DefaultModel
	}

	p.APIBaseURL = strings.TrimRight(p.APIBaseURL, "/")

	return p
}

func (p Params) Validate() error {
	var errs []error

	if p.APIBaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	} else if u, err := url.Parse(p.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api base url %q must be an absolute http(s) url", p.APIBaseURL))
	}

	if _, err := time.LoadLocation(p.withDefaults().Timezone); err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q: %w", p.Timezone, err))
	}

	if p.Service == "" {
		errs = append(errs, errors.New("service identifier is required"))
	}

	return errors.Join(errs...)
}

// Builder produces the deployment batch from environment parameters. It is
// pure: identical params give identical graphs.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

type workflowFunc func(p Params, creds credentials) (*domain.WorkflowGraph, error)

func (b *Builder) Build(params Params) (domain.DeploymentBatch, error) {
	if err := params.Validate(); err != nil {
		return domain.DeploymentBatch{}, fmt.Errorf("invalid catalog parameters: %w", err)
	}

	params = params.withDefaults()
	creds := newCredentials()

	builders := []workflowFunc{
		contentGenerator,
		queueProcessor,
		analyticsCollector,
	}

	batch := domain.DeploymentBatch{
		Credentials: creds.all(),
		Service:     params.Service,
	}

	for _, build := range builders {
		graph, err := build(params, creds)
		if err != nil {
			return domain.DeploymentBatch{}, err
		}
		batch.Workflows = append(batch.Workflows, graph)
	}

	if err := batch.Validate(); err != nil {
		return domain.DeploymentBatch{}, err
	}

	return batch, nil
}

// WorkflowID derives the engine workflow id from the workflow name. Re-running
// an import with the same id updates the workflow instead of duplicating it.
func WorkflowID(name string) string {
	id := uuid.NewSHA1(namespace, []byte("workflow:"+name))
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

func webhookID(workflowName, nodeName string) string {
	return uuid.NewSHA1(namespace, []byte("webhook:"+workflowName+"/"+nodeName)).String()
}

func workflowName(p Params, title string) string {
	return fmt.Sprintf("%s - %s", p.NamePrefix, title)
}

func settings(p Params) domain.Settings {
	return domain.Settings{
		ExecutionOrder: domain.ExecutionOrderV1,
		Timezone:       p.Timezone,
	}
}

// chain wires nodes one after another on output 0 / input 0.
func chain(b *domain.GraphBuilder, names ...string) error {
	for i := 0; i+1 < len(names); i++ {
		if err := b.AddConnection(domain.Connection{Source: names[i], Target: names[i+1]}); err != nil {
			return err
		}
	}

	return nil
}

func addNodes(b *domain.GraphBuilder, nodes ...domain.Node) error {
	for _, n := range nodes {
		if err := b.AddNode(n); err != nil {
			return err
		}
	}

	return nil
}
