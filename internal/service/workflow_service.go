package service

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

//go:embed templates/workflows.yaml
var workflowCatalog []byte

var (
	nodeTypes        = []string{model.NodeTrigger, model.NodeAction, model.NodeCondition, model.NodeDelay}
	workflowStatuses = []string{model.WorkflowDraft, model.WorkflowActive, model.WorkflowInactive}
)

// WorkflowTemplate is a starter graph from the embedded catalog.
type WorkflowTemplate struct {
	Key         string               `yaml:"key" json:"key"`
	Name        string               `yaml:"name" json:"name"`
	Description string               `yaml:"description" json:"description"`
	TriggerType string               `yaml:"trigger_type" json:"trigger_type"`
	Nodes       []model.WorkflowNode `yaml:"nodes" json:"nodes"`
	Edges       []model.WorkflowEdge `yaml:"edges" json:"edges"`
}

// LoadWorkflowTemplates parses a YAML catalog and validates every graph.
func LoadWorkflowTemplates(data []byte) ([]WorkflowTemplate, error) {
	var templates []WorkflowTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse workflow templates: %w", err)
	}
	seen := map[string]bool{}
	for _, t := range templates {
		if t.Key == "" || seen[t.Key] {
			return nil, fmt.Errorf("workflow template key %q is empty or duplicated", t.Key)
		}
		seen[t.Key] = true
		if err := ValidateGraph(t.Nodes, t.Edges, true); err != nil {
			return nil, fmt.Errorf("workflow template %s: %w", t.Key, err)
		}
	}
	return templates, nil
}

// WorkflowService stores workflow graphs. Nothing here executes them.
type WorkflowService struct {
	WorkflowRepo repository.WorkflowRepositoryInterface
	Logger       *zap.Logger

	templates []WorkflowTemplate
}

func NewWorkflowService(repo repository.WorkflowRepositoryInterface, logger *zap.Logger) (*WorkflowService, error) {
	templates, err := LoadWorkflowTemplates(workflowCatalog)
	if err != nil {
		return nil, err
	}
	return &WorkflowService{WorkflowRepo: repo, Logger: logger, templates: templates}, nil
}

type WorkflowInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      string               `json:"status"`
	TriggerType string               `json:"trigger_type"`
	Nodes       []model.WorkflowNode `json:"nodes"`
	Edges       []model.WorkflowEdge `json:"edges"`
}

// ValidateGraph checks node ids are unique, node types are known, edges
// join existing nodes and never loop on one node. requireTrigger demands
// at least one trigger node, as activating a workflow does.
func ValidateGraph(nodes []model.WorkflowNode, edges []model.WorkflowEdge, requireTrigger bool) error {
	ids := make(map[string]bool, len(nodes))
	triggers := 0
	for _, n := range nodes {
		if strings.TrimSpace(n.ID) == "" {
			return appErrors.Validation("every node needs an id")
		}
		if ids[n.ID] {
			return appErrors.Validation("duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
		if !contains(nodeTypes, n.Type) {
			return appErrors.Validation("node %q has unknown type %q", n.ID, n.Type)
		}
		if n.Type == model.NodeTrigger {
			triggers++
		}
	}

	edgeIDs := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID != "" {
			if edgeIDs[e.ID] {
				return appErrors.Validation("duplicate edge id %q", e.ID)
			}
			edgeIDs[e.ID] = true
		}
		if !ids[e.Source] || !ids[e.Target] {
			return appErrors.Validation("edge %q references a missing node", e.ID)
		}
		if e.Source == e.Target {
			return appErrors.Validation("edge %q connects node %q to itself", e.ID, e.Source)
		}
	}

	if requireTrigger && triggers == 0 {
		return appErrors.Validation("an active workflow needs a trigger node")
	}
	return nil
}

func (in *WorkflowInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if in.Status == "" {
		in.Status = model.WorkflowDraft
	}
	if !contains(workflowStatuses, in.Status) {
		return appErrors.Validation("status must be one of %s", strings.Join(workflowStatuses, ", "))
	}
	return ValidateGraph(in.Nodes, in.Edges, in.Status == model.WorkflowActive)
}

func (s *WorkflowService) Create(ctx context.Context, userID uuid.UUID, in WorkflowInput) (*model.Workflow, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w := &model.Workflow{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		TriggerType: in.TriggerType,
		Nodes:       in.Nodes,
		Edges:       in.Edges,
	}
	if err := s.WorkflowRepo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkflowService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Workflow, error) {
	w, err := s.WorkflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(w.UserID, userID, "workflow", id); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkflowService) List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Workflow, model.Pagination, error) {
	page = page.Normalize()
	items, total, err := s.WorkflowRepo.List(ctx, userID, status, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

func (s *WorkflowService) Update(ctx context.Context, userID, id uuid.UUID, in WorkflowInput) (*model.Workflow, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	w.Name, w.Description, w.Status, w.TriggerType = in.Name, in.Description, in.Status, in.TriggerType
	w.Nodes, w.Edges = in.Nodes, in.Edges
	if err := s.WorkflowRepo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkflowService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.WorkflowRepo.Delete(ctx, id)
}

// SetStatus activates or deactivates a workflow. Activation re-validates
// the stored graph.
func (s *WorkflowService) SetStatus(ctx context.Context, userID, id uuid.UUID, status string) (*model.Workflow, error) {
	if !contains(workflowStatuses, status) {
		return nil, appErrors.Validation("status must be one of %s", strings.Join(workflowStatuses, ", "))
	}
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateGraph(w.Nodes, w.Edges, status == model.WorkflowActive); err != nil {
		return nil, err
	}
	w.Status = status
	if err := s.WorkflowRepo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkflowService) Templates() []WorkflowTemplate {
	return s.templates
}

// CreateFromTemplate copies a catalog graph into a new draft workflow.
func (s *WorkflowService) CreateFromTemplate(ctx context.Context, userID uuid.UUID, key, name string) (*model.Workflow, error) {
	for _, t := range s.templates {
		if t.Key != key {
			continue
		}
		if strings.TrimSpace(name) == "" {
			name = t.Name
		}
		return s.Create(ctx, userID, WorkflowInput{
			Name:        name,
			Description: t.Description,
			Status:      model.WorkflowDraft,
			TriggerType: t.TriggerType,
			Nodes:       append([]model.WorkflowNode(nil), t.Nodes...),
			Edges:       append([]model.WorkflowEdge(nil), t.Edges...),
		})
	}
	return nil, appErrors.NotFound("workflow template", key)
}
