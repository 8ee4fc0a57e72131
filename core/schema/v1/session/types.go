// Package session defines the typed record schema for Claude Code session
// JSONL files and the dispatcher that turns raw lines into typed variants.
//
// The schema is closed: a line whose shape is not modeled here is a decode
// error, never a silent pass-through. Every decoded record also keeps its
// original line bytes so that downstream rewrites can edit single fields
// without disturbing the rest of the line.
package session

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tracks the record taxonomy, not the archive container format.
const SchemaVersion = "0.2.0"

// Kind names the typed variant of a record. System records dispatch a second
// time on their subtype field; the slash form keeps the two levels readable.
type Kind string

const (
	KindUser                 Kind = "user"
	KindAssistant            Kind = "assistant"
	KindSummary              Kind = "summary"
	KindSystem               Kind = "system"
	KindLocalCommand         Kind = "system/local_command"
	KindCompactBoundary      Kind = "system/compact_boundary"
	KindMicroCompactBoundary Kind = "system/microcompact_boundary"
	KindAPIError             Kind = "system/api_error"
	KindInformational        Kind = "system/informational"
	KindTurnDuration         Kind = "system/turn_duration"
	KindStopHookSummary      Kind = "system/stop_hook_summary"
	KindFileHistorySnapshot  Kind = "file-history-snapshot"
	KindQueueOperation       Kind = "queue-operation"
	KindCustomTitle          Kind = "custom-title"
	KindProgress             Kind = "progress"
	KindPrLink               Kind = "pr-link"
	KindSavedHookContext     Kind = "saved-hook-context"
)

// Record is one parsed line: the typed validation view plus the raw bytes
// it was decoded from. Payload holds a pointer to the variant struct that
// matches Kind.
type Record struct {
	Kind    Kind
	Raw     json.RawMessage
	Payload any
}

// ==============================================================================
// Shared substructures
// ==============================================================================

type CacheCreation struct {
	Ephemeral5mInputTokens int `json:"ephemeral_5m_input_tokens"`
	Ephemeral1hInputTokens int `json:"ephemeral_1h_input_tokens"`
}

type ServerToolUse struct {
	WebSearchRequests int `json:"web_search_requests"`
	WebFetchRequests  int `json:"web_fetch_requests"`
}

type TokenUsage struct {
	InputTokens              int            `json:"input_tokens"`
	OutputTokens             int            `json:"output_tokens"`
	CacheCreationInputTokens int            `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int            `json:"cache_read_input_tokens"`
	CacheCreation            *CacheCreation `json:"cache_creation,omitempty"`
	ServiceTier              *string        `json:"service_tier,omitempty"`
	ServerToolUse            *ServerToolUse `json:"server_tool_use,omitempty"`
}

type ClearThinkingEdit struct {
	Type                 string `json:"type"`
	ClearedThinkingTurns int    `json:"cleared_thinking_turns"`
	ClearedInputTokens   int    `json:"cleared_input_tokens"`
}

type ContextManagement struct {
	AppliedEdits []ClearThinkingEdit `json:"applied_edits"`
}

// Message is the message body shared by user and assistant records. Agent
// and subprocess records nest the full API response here, so most fields
// are optional.
type Message struct {
	Role              string             `json:"role"`
	Content           MessageBody        `json:"content"`
	Type              *string            `json:"type,omitempty"`
	Model             *string            `json:"model,omitempty"`
	ID                *string            `json:"id,omitempty"`
	StopReason        *string            `json:"stop_reason,omitempty"`
	StopSequence      *string            `json:"stop_sequence,omitempty"`
	Usage             *TokenUsage        `json:"usage,omitempty"`
	Container         json.RawMessage    `json:"container,omitempty"` // reserved, observed only as null
	ContextManagement *ContextManagement `json:"context_management,omitempty"`
}

type ThinkingTriggerSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// ThinkingTrigger is either a bare string or a positioned span.
type ThinkingTrigger struct {
	Text string
	Span *ThinkingTriggerSpan
}

func (t *ThinkingTrigger) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Text)
	}
	t.Span = &ThinkingTriggerSpan{}
	return strictDecode(data, t.Span)
}

func (t ThinkingTrigger) MarshalJSON() ([]byte, error) {
	if t.Span != nil {
		return json.Marshal(t.Span)
	}
	return json.Marshal(t.Text)
}

type ThinkingMetadata struct {
	Level    string            `json:"level"`
	Disabled bool              `json:"disabled"`
	Triggers []ThinkingTrigger `json:"triggers"`
}

type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm"`
}

type CompactMetadata struct {
	Trigger   string `json:"trigger"`
	PreTokens int    `json:"preTokens"`
}

// ==============================================================================
// API error payloads (system/api_error)
// ==============================================================================

type APIErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Type      string          `json:"type"`
	Error     *APIErrorDetail `json:"error,omitempty"`
	RequestID *string         `json:"request_id,omitempty"`
}

type APIErrorInfo struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers"`
	RequestID *string           `json:"requestID,omitempty"`
	Error     *APIErrorResponse `json:"error,omitempty"`
}

type ConnectionErrorInfo struct {
	Code  string `json:"code"`
	Path  string `json:"path"`
	Errno int    `json:"errno"`
}

type NetworkErrorInfo struct {
	Cause ConnectionErrorInfo `json:"cause"`
}

// SystemErrorInfo is the error payload of an api_error system record:
// an API error, a network error, or an empty object for unclassified
// failures.
type SystemErrorInfo struct {
	API     *APIErrorInfo
	Network *NetworkErrorInfo
	Empty   bool
	raw     json.RawMessage
}

func (e *SystemErrorInfo) UnmarshalJSON(data []byte) error {
	e.raw = cloneBytes(data)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("error payload: %w", err)
	}
	switch {
	case len(fields) == 0:
		e.Empty = true
		return nil
	case hasKey(fields, "status"):
		e.API = &APIErrorInfo{}
		return strictDecode(data, e.API)
	case hasKey(fields, "cause"):
		e.Network = &NetworkErrorInfo{}
		return strictDecode(data, e.Network)
	default:
		return fmt.Errorf("unrecognized error payload shape")
	}
}

func (e SystemErrorInfo) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	switch {
	case e.API != nil:
		return json.Marshal(e.API)
	case e.Network != nil:
		return json.Marshal(e.Network)
	default:
		return []byte("{}"), nil
	}
}

func hasKey(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

// ==============================================================================
// Record variants
// ==============================================================================

type UserRecord struct {
	Type                      string            `json:"type"`
	UUID                      string            `json:"uuid"`
	Timestamp                 string            `json:"timestamp"`
	SessionID                 string            `json:"sessionId"`
	Cwd                       string            `json:"cwd"`
	ParentUUID                *string           `json:"parentUuid"`
	IsSidechain               bool              `json:"isSidechain"`
	UserType                  string            `json:"userType"`
	Version                   string            `json:"version"`
	GitBranch                 string            `json:"gitBranch"`
	Message                   Message           `json:"message"`
	ProjectPaths              []string          `json:"projectPaths,omitempty"`
	BudgetTokens              *int              `json:"budgetTokens,omitempty"`
	Skills                    json.RawMessage   `json:"skills,omitempty"` // reserved, observed only as null
	MCP                       json.RawMessage   `json:"mcp,omitempty"`    // reserved, observed only as null
	AgentID                   *string           `json:"agentId,omitempty"`
	IsMeta                    *bool             `json:"isMeta,omitempty"`
	ThinkingMetadata          *ThinkingMetadata `json:"thinkingMetadata,omitempty"`
	IsVisibleInTranscriptOnly *bool             `json:"isVisibleInTranscriptOnly,omitempty"`
	IsCompactSummary          *bool             `json:"isCompactSummary,omitempty"`
	ToolUseResult             *ToolUseResult    `json:"toolUseResult,omitempty"`
	Todos                     []TodoItem        `json:"todos,omitempty"`
	Slug                      *string           `json:"slug,omitempty"`
	ImagePasteIDs             []int             `json:"imagePasteIds,omitempty"`
	SourceToolUseID           *string           `json:"sourceToolUseID,omitempty"`
}

func (r *UserRecord) check() error {
	return requireFields(map[string]string{
		"uuid": r.UUID, "timestamp": r.Timestamp, "sessionId": r.SessionID, "cwd": r.Cwd,
	})
}

type AssistantRecord struct {
	Type              string          `json:"type"`
	UUID              string          `json:"uuid"`
	Timestamp         string          `json:"timestamp"`
	SessionID         string          `json:"sessionId"`
	Cwd               string          `json:"cwd"`
	ParentUUID        *string         `json:"parentUuid"`
	Message           Message         `json:"message"`
	Usage             *TokenUsage     `json:"usage,omitempty"`
	StopReason        json.RawMessage `json:"stopReason,omitempty"` // reserved, observed only as null
	Model             *string         `json:"model,omitempty"`
	RequestDuration   *int            `json:"requestDuration,omitempty"`
	RequestID         *string         `json:"requestId,omitempty"`
	AgentID           *string         `json:"agentId,omitempty"`
	IsSidechain       *bool           `json:"isSidechain,omitempty"`
	UserType          *string         `json:"userType,omitempty"`
	Version           *string         `json:"version,omitempty"`
	GitBranch         *string         `json:"gitBranch,omitempty"`
	IsAPIErrorMessage *bool           `json:"isApiErrorMessage,omitempty"`
	Error             *string         `json:"error,omitempty"`
	Slug              *string         `json:"slug,omitempty"`
}

func (r *AssistantRecord) check() error {
	return requireFields(map[string]string{
		"uuid": r.UUID, "timestamp": r.Timestamp, "sessionId": r.SessionID, "cwd": r.Cwd,
	})
}

// SummaryRecord has no uuid, timestamp, or sessionId.
type SummaryRecord struct {
	Type     string `json:"type"`
	Summary  string `json:"summary"`
	LeafUUID string `json:"leafUuid"`
}

func (r *SummaryRecord) check() error {
	return requireFields(map[string]string{"summary": r.Summary, "leafUuid": r.LeafUUID})
}

// SystemRecord is the legacy system shape carrying systemType and no subtype.
type SystemRecord struct {
	Type       string  `json:"type"`
	UUID       string  `json:"uuid"`
	Timestamp  string  `json:"timestamp"`
	SessionID  string  `json:"sessionId"`
	Cwd        string  `json:"cwd"`
	ParentUUID *string `json:"parentUuid"`
	SystemType string  `json:"systemType"`
	Message    string  `json:"message"`
}

func (r *SystemRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type LocalCommandRecord struct {
	Type        string  `json:"type"`
	UUID        string  `json:"uuid"`
	Timestamp   string  `json:"timestamp"`
	SessionID   string  `json:"sessionId"`
	Cwd         string  `json:"cwd"`
	ParentUUID  *string `json:"parentUuid"`
	Subtype     string  `json:"subtype"`
	Content     string  `json:"content"`
	Level       *string `json:"level,omitempty"`
	IsMeta      bool    `json:"isMeta"`
	IsSidechain bool    `json:"isSidechain"`
	UserType    string  `json:"userType"`
	Version     string  `json:"version"`
	GitBranch   string  `json:"gitBranch"`
	Slug        *string `json:"slug,omitempty"`
}

func (r *LocalCommandRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type CompactBoundaryRecord struct {
	Type              string           `json:"type"`
	UUID              string           `json:"uuid"`
	Timestamp         string           `json:"timestamp"`
	SessionID         string           `json:"sessionId"`
	Cwd               string           `json:"cwd"`
	ParentUUID        *string          `json:"parentUuid"`
	Subtype           string           `json:"subtype"`
	Content           string           `json:"content"`
	Level             *string          `json:"level,omitempty"`
	IsMeta            bool             `json:"isMeta"`
	IsSidechain       bool             `json:"isSidechain"`
	UserType          string           `json:"userType"`
	Version           string           `json:"version"`
	GitBranch         string           `json:"gitBranch"`
	Slug              *string          `json:"slug,omitempty"`
	LogicalParentUUID *string          `json:"logicalParentUuid,omitempty"`
	CompactMetadata   *CompactMetadata `json:"compactMetadata,omitempty"`
}

func (r *CompactBoundaryRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

// MicroCompactBoundaryRecord marks a partial compaction. Same shape family
// as the full boundary, with most fields optional.
type MicroCompactBoundaryRecord struct {
	Type              string           `json:"type"`
	UUID              string           `json:"uuid"`
	Timestamp         string           `json:"timestamp"`
	SessionID         string           `json:"sessionId"`
	Cwd               *string          `json:"cwd,omitempty"`
	ParentUUID        *string          `json:"parentUuid,omitempty"`
	Subtype           string           `json:"subtype"`
	Content           *string          `json:"content,omitempty"`
	Level             *string          `json:"level,omitempty"`
	IsMeta            *bool            `json:"isMeta,omitempty"`
	IsSidechain       *bool            `json:"isSidechain,omitempty"`
	UserType          *string          `json:"userType,omitempty"`
	Version           *string          `json:"version,omitempty"`
	GitBranch         *string          `json:"gitBranch,omitempty"`
	Slug              *string          `json:"slug,omitempty"`
	LogicalParentUUID *string          `json:"logicalParentUuid,omitempty"`
	CompactMetadata   *CompactMetadata `json:"compactMetadata,omitempty"`
}

func (r *MicroCompactBoundaryRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type APIErrorRecord struct {
	Type         string               `json:"type"`
	UUID         string               `json:"uuid"`
	Timestamp    string               `json:"timestamp"`
	SessionID    string               `json:"sessionId"`
	Cwd          string               `json:"cwd"`
	ParentUUID   *string              `json:"parentUuid"`
	Subtype      string               `json:"subtype"`
	Level        *string              `json:"level,omitempty"`
	IsSidechain  *bool                `json:"isSidechain,omitempty"`
	UserType     *string              `json:"userType,omitempty"`
	Version      *string              `json:"version,omitempty"`
	GitBranch    *string              `json:"gitBranch,omitempty"`
	Slug         *string              `json:"slug,omitempty"`
	Cause        *ConnectionErrorInfo `json:"cause,omitempty"`
	Error        SystemErrorInfo      `json:"error"`
	RetryInMs    float64              `json:"retryInMs"`
	RetryAttempt int                  `json:"retryAttempt"`
	MaxRetries   int                  `json:"maxRetries"`
}

func (r *APIErrorRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type InformationalRecord struct {
	Type        string  `json:"type"`
	UUID        string  `json:"uuid"`
	Timestamp   string  `json:"timestamp"`
	SessionID   string  `json:"sessionId"`
	Cwd         string  `json:"cwd"`
	ParentUUID  *string `json:"parentUuid"`
	Subtype     string  `json:"subtype"`
	Content     *string `json:"content,omitempty"`
	Level       *string `json:"level,omitempty"`
	IsMeta      *bool   `json:"isMeta,omitempty"`
	IsSidechain *bool   `json:"isSidechain,omitempty"`
	UserType    *string `json:"userType,omitempty"`
	Version     *string `json:"version,omitempty"`
	GitBranch   *string `json:"gitBranch,omitempty"`
}

func (r *InformationalRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type TurnDurationRecord struct {
	Type       string  `json:"type"`
	UUID       string  `json:"uuid"`
	Timestamp  string  `json:"timestamp"`
	SessionID  string  `json:"sessionId"`
	Cwd        *string `json:"cwd,omitempty"`
	ParentUUID *string `json:"parentUuid,omitempty"`
	Subtype    string  `json:"subtype"`
	DurationMs int     `json:"durationMs"`
	IsMeta     *bool   `json:"isMeta,omitempty"`
}

func (r *TurnDurationRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type StopHookSummaryRecord struct {
	Type       string  `json:"type"`
	UUID       string  `json:"uuid"`
	Timestamp  string  `json:"timestamp"`
	SessionID  string  `json:"sessionId"`
	Cwd        *string `json:"cwd,omitempty"`
	ParentUUID *string `json:"parentUuid,omitempty"`
	Subtype    string  `json:"subtype"`
	Content    *string `json:"content,omitempty"`
	Summary    *string `json:"summary,omitempty"`
	IsMeta     *bool   `json:"isMeta,omitempty"`
}

func (r *StopHookSummaryRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type FileBackupInfo struct {
	BackupFileName *string `json:"backupFileName"`
	Version        int     `json:"version"`
	BackupTime     string  `json:"backupTime"`
}

type FileHistorySnapshot struct {
	MessageID          string                    `json:"messageId"`
	TrackedFileBackups map[string]FileBackupInfo `json:"trackedFileBackups"`
	Timestamp          string                    `json:"timestamp"`
}

type FileHistorySnapshotRecord struct {
	Type             string              `json:"type"`
	MessageID        string              `json:"messageId"`
	Snapshot         FileHistorySnapshot `json:"snapshot"`
	IsSnapshotUpdate bool                `json:"isSnapshotUpdate"`
}

func (r *FileHistorySnapshotRecord) check() error {
	return requireFields(map[string]string{"messageId": r.MessageID})
}

type QueueOperationRecord struct {
	Type      string          `json:"type"`
	Operation string          `json:"operation"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	Content   *MessageBody    `json:"content,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"` // reserved, observed only as null
}

func (r *QueueOperationRecord) check() error {
	return requireFields(map[string]string{
		"operation": r.Operation, "timestamp": r.Timestamp, "sessionId": r.SessionID,
	})
}

type CustomTitleRecord struct {
	Type        string `json:"type"`
	CustomTitle string `json:"customTitle"`
	SessionID   string `json:"sessionId"`
}

func (r *CustomTitleRecord) check() error {
	return requireFields(map[string]string{"customTitle": r.CustomTitle, "sessionId": r.SessionID})
}

type ProgressRecord struct {
	Type       string          `json:"type"`
	UUID       string          `json:"uuid"`
	Timestamp  string          `json:"timestamp"`
	SessionID  string          `json:"sessionId"`
	ParentUUID *string         `json:"parentUuid,omitempty"`
	ToolUseID  *string         `json:"toolUseID,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func (r *ProgressRecord) check() error {
	return requireFields(map[string]string{"uuid": r.UUID, "sessionId": r.SessionID})
}

type PrLinkRecord struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId"`
	UUID      *string `json:"uuid,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
	URL       string  `json:"url"`
}

func (r *PrLinkRecord) check() error {
	return requireFields(map[string]string{"sessionId": r.SessionID, "url": r.URL})
}

type SavedHookContextRecord struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId"`
	UUID        *string         `json:"uuid,omitempty"`
	Timestamp   *string         `json:"timestamp,omitempty"`
	HookContext json.RawMessage `json:"hookContext,omitempty"`
	Content     *string         `json:"content,omitempty"`
}

func (r *SavedHookContextRecord) check() error {
	return requireFields(map[string]string{"sessionId": r.SessionID})
}

func requireFields(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	return nil
}

func cloneBytes(data []byte) json.RawMessage {
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
