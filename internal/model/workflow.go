// internal/model/workflow.go
package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowDraft    = "draft"
	WorkflowActive   = "active"
	WorkflowInactive = "inactive"
)

const (
	NodeTrigger   = "trigger"
	NodeAction    = "action"
	NodeCondition = "condition"
	NodeDelay     = "delay"
)

// Workflow is a saved node/edge graph. Nothing in this service executes it.
type Workflow struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	UserID      uuid.UUID     `db:"user_id" json:"user_id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	Status      string        `db:"status" json:"status"`
	TriggerType string        `db:"trigger_type" json:"trigger_type"`
	Nodes       WorkflowNodes `db:"nodes" json:"nodes"`
	Edges       WorkflowEdges `db:"edges" json:"edges"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type WorkflowNode struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Position Position       `json:"position" yaml:"position"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

type WorkflowEdge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

type WorkflowNodes []WorkflowNode

func (n WorkflowNodes) Value() (driver.Value, error) {
	if n == nil {
		n = WorkflowNodes{}
	}
	return jsonValue([]WorkflowNode(n))
}

func (n *WorkflowNodes) Scan(src any) error { return jsonScan(src, (*[]WorkflowNode)(n)) }

type WorkflowEdges []WorkflowEdge

func (e WorkflowEdges) Value() (driver.Value, error) {
	if e == nil {
		e = WorkflowEdges{}
	}
	return jsonValue([]WorkflowEdge(e))
}

func (e *WorkflowEdges) Scan(src any) error { return jsonScan(src, (*[]WorkflowEdge)(e)) }
