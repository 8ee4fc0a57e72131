package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
)

// Session lines can carry multi-megabyte embedded file contents.
const maxLineBytes = 10 * 1024 * 1024

type checker interface {
	check() error
}

// DecodeRecord dispatches one JSONL line to its typed variant. Dispatch is
// two-level: the type field first, then subtype for system records. Unknown
// types, unknown subtypes, and unknown fields are all errors.
func DecodeRecord(line []byte) (Record, error) {
	var head struct {
		Type    *string `json:"type"`
		Subtype *string `json:"subtype"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}
	if head.Type == nil || *head.Type == "" {
		return Record{}, fmt.Errorf("record has no type field")
	}

	var (
		kind    Kind
		payload any
	)
	switch *head.Type {
	case "user":
		kind, payload = KindUser, &UserRecord{}
	case "assistant":
		kind, payload = KindAssistant, &AssistantRecord{}
	case "summary":
		kind, payload = KindSummary, &SummaryRecord{}
	case "file-history-snapshot":
		kind, payload = KindFileHistorySnapshot, &FileHistorySnapshotRecord{}
	case "queue-operation":
		kind, payload = KindQueueOperation, &QueueOperationRecord{}
	case "custom-title":
		kind, payload = KindCustomTitle, &CustomTitleRecord{}
	case "progress":
		kind, payload = KindProgress, &ProgressRecord{}
	case "pr-link":
		kind, payload = KindPrLink, &PrLinkRecord{}
	case "saved-hook-context":
		kind, payload = KindSavedHookContext, &SavedHookContextRecord{}
	case "system":
		if head.Subtype == nil {
			kind, payload = KindSystem, &SystemRecord{}
			break
		}
		switch *head.Subtype {
		case "local_command":
			kind, payload = KindLocalCommand, &LocalCommandRecord{}
		case "compact_boundary":
			kind, payload = KindCompactBoundary, &CompactBoundaryRecord{}
		case "microcompact_boundary":
			kind, payload = KindMicroCompactBoundary, &MicroCompactBoundaryRecord{}
		case "api_error":
			kind, payload = KindAPIError, &APIErrorRecord{}
		case "informational":
			kind, payload = KindInformational, &InformationalRecord{}
		case "turn_duration":
			kind, payload = KindTurnDuration, &TurnDurationRecord{}
		case "stop_hook_summary":
			kind, payload = KindStopHookSummary, &StopHookSummaryRecord{}
		default:
			return Record{}, fmt.Errorf("unknown system record subtype %q", *head.Subtype)
		}
	default:
		return Record{}, fmt.Errorf("unknown record type %q", *head.Type)
	}

	if err := strictDecode(line, payload); err != nil {
		return Record{}, fmt.Errorf("decode %s record: %w", kind, err)
	}
	if c, ok := payload.(checker); ok {
		if err := c.check(); err != nil {
			return Record{}, fmt.Errorf("invalid %s record: %w", kind, err)
		}
	}
	return Record{Kind: kind, Raw: cloneBytes(line), Payload: payload}, nil
}

// ParseLines decodes a whole JSONL document. Blank lines are skipped; any
// undecodable line fails the whole parse with its line number.
func ParseLines(data []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		record, err := DecodeRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return records, nil
}

// ParseFile reads and decodes a session file. Decode failures are classified
// as schema validation errors so callers refuse to operate on the file.
func ParseFile(path string) ([]Record, error) {
	// #nosec G304 -- session paths come from discovery over trusted roots.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("read session file: %w", err),
			coreerrors.CategoryIOFailure, "session_read_failed",
			"check that the session file exists and is readable", false)
	}
	records, err := ParseLines(data)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("%s: %w", path, err),
			coreerrors.CategorySchemaValidation, "session_decode_failed",
			"the session file contains a record shape this version does not model", false)
	}
	return records, nil
}

func strictDecode(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	return nil
}
