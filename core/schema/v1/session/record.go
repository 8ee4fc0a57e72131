package session

// Typed accessors over the Payload union. Each returns false when the
// variant has no such field, so callers never need the full type switch.

// SessionID returns the record's session id if the variant carries one.
func (r Record) SessionID() (string, bool) {
	switch payload := r.Payload.(type) {
	case *UserRecord:
		return payload.SessionID, true
	case *AssistantRecord:
		return payload.SessionID, true
	case *SystemRecord:
		return payload.SessionID, true
	case *LocalCommandRecord:
		return payload.SessionID, true
	case *CompactBoundaryRecord:
		return payload.SessionID, true
	case *MicroCompactBoundaryRecord:
		return payload.SessionID, true
	case *APIErrorRecord:
		return payload.SessionID, true
	case *InformationalRecord:
		return payload.SessionID, true
	case *TurnDurationRecord:
		return payload.SessionID, true
	case *StopHookSummaryRecord:
		return payload.SessionID, true
	case *QueueOperationRecord:
		return payload.SessionID, true
	case *CustomTitleRecord:
		return payload.SessionID, true
	case *ProgressRecord:
		return payload.SessionID, true
	case *PrLinkRecord:
		return payload.SessionID, true
	case *SavedHookContextRecord:
		return payload.SessionID, true
	default:
		return "", false
	}
}

// UUID returns the record's own uuid if the variant carries one.
func (r Record) UUID() (string, bool) {
	switch payload := r.Payload.(type) {
	case *UserRecord:
		return payload.UUID, true
	case *AssistantRecord:
		return payload.UUID, true
	case *SystemRecord:
		return payload.UUID, true
	case *LocalCommandRecord:
		return payload.UUID, true
	case *CompactBoundaryRecord:
		return payload.UUID, true
	case *MicroCompactBoundaryRecord:
		return payload.UUID, true
	case *APIErrorRecord:
		return payload.UUID, true
	case *InformationalRecord:
		return payload.UUID, true
	case *TurnDurationRecord:
		return payload.UUID, true
	case *StopHookSummaryRecord:
		return payload.UUID, true
	case *ProgressRecord:
		return payload.UUID, true
	default:
		return "", false
	}
}

// ParentUUID returns the record's parent uuid; false when absent or null.
func (r Record) ParentUUID() (string, bool) {
	var parent *string
	switch payload := r.Payload.(type) {
	case *UserRecord:
		parent = payload.ParentUUID
	case *AssistantRecord:
		parent = payload.ParentUUID
	case *SystemRecord:
		parent = payload.ParentUUID
	case *LocalCommandRecord:
		parent = payload.ParentUUID
	case *CompactBoundaryRecord:
		parent = payload.ParentUUID
	case *MicroCompactBoundaryRecord:
		parent = payload.ParentUUID
	case *APIErrorRecord:
		parent = payload.ParentUUID
	case *InformationalRecord:
		parent = payload.ParentUUID
	case *TurnDurationRecord:
		parent = payload.ParentUUID
	case *StopHookSummaryRecord:
		parent = payload.ParentUUID
	case *ProgressRecord:
		parent = payload.ParentUUID
	}
	if parent == nil || *parent == "" {
		return "", false
	}
	return *parent, true
}

// Cwd returns the project working directory recorded on the line. This is
// the authoritative source for the project path.
func (r Record) Cwd() (string, bool) {
	switch payload := r.Payload.(type) {
	case *UserRecord:
		return payload.Cwd, true
	case *AssistantRecord:
		return payload.Cwd, true
	case *SystemRecord:
		return payload.Cwd, true
	case *LocalCommandRecord:
		return payload.Cwd, true
	case *CompactBoundaryRecord:
		return payload.Cwd, true
	case *APIErrorRecord:
		return payload.Cwd, true
	case *InformationalRecord:
		return payload.Cwd, true
	case *MicroCompactBoundaryRecord:
		if payload.Cwd != nil {
			return *payload.Cwd, true
		}
	case *TurnDurationRecord:
		if payload.Cwd != nil {
			return *payload.Cwd, true
		}
	case *StopHookSummaryRecord:
		if payload.Cwd != nil {
			return *payload.Cwd, true
		}
	}
	return "", false
}

// Slug returns the plan slug if the record carries one.
func (r Record) Slug() (string, bool) {
	var slug *string
	switch payload := r.Payload.(type) {
	case *UserRecord:
		slug = payload.Slug
	case *AssistantRecord:
		slug = payload.Slug
	case *LocalCommandRecord:
		slug = payload.Slug
	case *CompactBoundaryRecord:
		slug = payload.Slug
	case *MicroCompactBoundaryRecord:
		slug = payload.Slug
	case *APIErrorRecord:
		slug = payload.Slug
	}
	if slug == nil || *slug == "" {
		return "", false
	}
	return *slug, true
}

// AgentID returns the subagent id stamped on the record, if any.
func (r Record) AgentID() (string, bool) {
	var agentID *string
	switch payload := r.Payload.(type) {
	case *UserRecord:
		agentID = payload.AgentID
	case *AssistantRecord:
		agentID = payload.AgentID
	}
	if agentID == nil || *agentID == "" {
		return "", false
	}
	return *agentID, true
}

// ProducerVersion returns the Claude Code version that wrote the record.
func (r Record) ProducerVersion() (string, bool) {
	switch payload := r.Payload.(type) {
	case *UserRecord:
		return payload.Version, true
	case *AssistantRecord:
		if payload.Version != nil {
			return *payload.Version, true
		}
	case *LocalCommandRecord:
		return payload.Version, true
	case *CompactBoundaryRecord:
		return payload.Version, true
	}
	return "", false
}

// CustomTitle returns the title if this is a custom-title record.
func (r Record) CustomTitle() (string, bool) {
	if payload, ok := r.Payload.(*CustomTitleRecord); ok {
		return payload.CustomTitle, true
	}
	return "", false
}

// Message returns the message body for user and assistant records.
func (r Record) Message() (*Message, bool) {
	switch payload := r.Payload.(type) {
	case *UserRecord:
		return &payload.Message, true
	case *AssistantRecord:
		return &payload.Message, true
	default:
		return nil, false
	}
}

// ToolUseIDs lists tool_use block ids introduced by this record.
func (r Record) ToolUseIDs() []string {
	message, ok := r.Message()
	if !ok || !message.Content.IsBlocks() {
		return nil
	}
	var ids []string
	for _, block := range message.Content.Blocks {
		if block.ToolUse != nil {
			ids = append(ids, block.ToolUse.ID)
		}
	}
	return ids
}

// ToolResultRefs lists tool_use ids referenced by tool_result blocks in
// this record.
func (r Record) ToolResultRefs() []string {
	message, ok := r.Message()
	if !ok || !message.Content.IsBlocks() {
		return nil
	}
	var refs []string
	for _, block := range message.Content.Blocks {
		if block.ToolResult != nil {
			refs = append(refs, block.ToolResult.ToolUseID)
		}
	}
	return refs
}
