// Package session owns the session and task lifecycle, including genealogy.
//
// The Manager is the single owner of session state: adapters keep only
// private working caches, and every store write flows through the Manager.
package session

import (
	"time"

	"github.com/lambdaflows/devteam/stream"
)

// Status is a session lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TaskStatus is a task lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskStopped   TaskStatus = "stopped"
)

// Session is one long-lived conversation with an agent backend.
type Session struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AgentType string `json:"agentType"`

	// PermissionMode in unified spelling; translated per call.
	PermissionMode string `json:"permissionMode"`
	Model          string `json:"model,omitempty"`
	WorkDir        string `json:"workDir,omitempty"`

	// ParentID links a child to its parent session; empty for roots.
	ParentID string `json:"parentId,omitempty"`

	// SpawnReason explains why a child exists ("fork", "subsession", ...).
	SpawnReason string `json:"spawnReason,omitempty"`

	// WorktreeID groups sessions working in the same isolation unit.
	WorktreeID string `json:"worktreeId,omitempty"`

	// ContinuationID is the vendor conversation id captured from the
	// stream, persisted so later prompts can resume.
	ContinuationID string `json:"continuationId,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// TaskIDs is the ordered task history.
	TaskIDs []string `json:"taskIds,omitempty"`

	// ChildIDs is the ordered child index, maintained on spawn.
	ChildIDs []string `json:"childIds,omitempty"`
}

// Task is one prompt execution inside a session.
type Task struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	ParentID  string     `json:"parentTaskId,omitempty"`
	Prompt    string     `json:"prompt"`
	Status    TaskStatus `json:"status"`

	// Result fields, set on completion.
	Content    string            `json:"content,omitempty"`
	Messages   []string          `json:"messages,omitempty"`
	Usage      stream.TokenUsage `json:"usage"`
	DurationMs int64             `json:"durationMs,omitempty"`

	// Error is the captured failure, set when Status is failed.
	Error string `json:"error,omitempty"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Genealogy is a session's live family resolution.
type Genealogy struct {
	// Ancestors walks parents root-ward, nearest first.
	Ancestors []*Session

	// Descendants lists transitive children, breadth-first.
	Descendants []*Session

	// Siblings are other children of the same parent.
	Siblings []*Session
}
