package a2a

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Object kind discriminators used on the wire.
const (
	KindMessage        = "message"
	KindTask           = "task"
	KindText           = "text"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
)

// Terminal reports whether the state allows no further transitions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// Part is a single content fragment of a message or artifact.
// Only text parts are supported by the decision flow agents.
type Part struct {
	Kind     string                 `json:"kind"`
	Text     string                 `json:"text,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) Part {
	return Part{Kind: KindText, Text: text}
}

// Message is a single conversational turn.
type Message struct {
	Kind      string                 `json:"kind"`
	MessageID string                 `json:"messageId"`
	Role      string                 `json:"role"`
	Parts     []Part                 `json:"parts"`
	TaskID    string                 `json:"taskId,omitempty"`
	ContextID string                 `json:"contextId,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewAgentTextMessage builds an agent-authored text message bound to a task.
func NewAgentTextMessage(text, taskID, contextID string) Message {
	return Message{
		Kind:      KindMessage,
		MessageID: uuid.New().String(),
		Role:      RoleAgent,
		Parts:     []Part{NewTextPart(text)},
		TaskID:    taskID,
		ContextID: contextID,
	}
}

// NewUserTextMessage builds a user-authored text message.
func NewUserTextMessage(text string) Message {
	return Message{
		Kind:      KindMessage,
		MessageID: uuid.New().String(),
		Role:      RoleUser,
		Parts:     []Part{NewTextPart(text)},
	}
}

// Text joins all text parts of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Kind == KindText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// TaskStatus captures the state of a task plus the accompanying agent message.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// NewTaskStatus stamps a status with the current time.
func NewTaskStatus(state TaskState, message *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Artifact is an output produced by an agent while working on a task.
type Artifact struct {
	ArtifactID string                 `json:"artifactId"`
	Name       string                 `json:"name,omitempty"`
	Parts      []Part                 `json:"parts"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextArtifact creates a named artifact holding a single text part.
func NewTextArtifact(name, text string) Artifact {
	return Artifact{
		ArtifactID: uuid.New().String(),
		Name:       name,
		Parts:      []Part{NewTextPart(text)},
	}
}

// Task is the unit of work tracked by an agent server.
type Task struct {
	Kind      string                 `json:"kind"`
	ID        string                 `json:"id"`
	ContextID string                 `json:"contextId"`
	Status    TaskStatus             `json:"status"`
	Artifacts []Artifact             `json:"artifacts,omitempty"`
	History   []Message              `json:"history,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TrimHistory returns a shallow copy of the task with history truncated to the
// most recent n messages. Negative n keeps the full history; zero drops it.
func (t *Task) TrimHistory(n int) *Task {
	cp := *t
	if n < 0 || len(t.History) <= n {
		return &cp
	}
	if n == 0 {
		cp.History = nil
		return &cp
	}
	cp.History = t.History[len(t.History)-n:]
	return &cp
}

// MessageSendConfiguration tunes how a message/send request is handled.
type MessageSendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	HistoryLength       *int     `json:"historyLength,omitempty"`
	Blocking            bool     `json:"blocking,omitempty"`
}

// MessageSendParams are the params of message/send and message/stream.
type MessageSendParams struct {
	Message       Message                   `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]interface{}    `json:"metadata,omitempty"`
}

// TaskQueryParams are the params of tasks/get.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

// TaskIDParams are the params of tasks/cancel.
type TaskIDParams struct {
	ID string `json:"id"`
}

// AgentProvider identifies the organization running an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes one capability of an agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard is the self-description served at /.well-known/agent.json.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Provider           *AgentProvider    `json:"provider,omitempty"`
	Version            string            `json:"version"`
	DocumentationURL   string            `json:"documentationUrl,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Skills             []AgentSkill      `json:"skills"`
}

// WellKnownCardPath is where agent cards are published.
const WellKnownCardPath = "/.well-known/agent.json"
