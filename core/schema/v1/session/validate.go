package session

import "fmt"

// ValidateReferences checks structural links across a combined record set,
// normally the main session plus all of its agent files:
//
//   - every non-null parentUuid resolves to a record uuid in the set
//   - every tool_result references a tool_use id introduced in the set
//
// Summary leafUuid values are exempt: compaction legitimately drops the
// records they point at.
func ValidateReferences(records []Record) error {
	uuids := make(map[string]bool, len(records))
	toolUses := make(map[string]bool)
	for _, record := range records {
		if id, ok := record.UUID(); ok {
			uuids[id] = true
		}
		for _, id := range record.ToolUseIDs() {
			toolUses[id] = true
		}
	}

	for i, record := range records {
		if parent, ok := record.ParentUUID(); ok && !uuids[parent] {
			return fmt.Errorf("record %d (%s): parentUuid %s does not resolve", i, record.Kind, parent)
		}
		for _, ref := range record.ToolResultRefs() {
			if !toolUses[ref] {
				return fmt.Errorf("record %d (%s): tool_result references unknown tool_use %s", i, record.Kind, ref)
			}
		}
	}
	return nil
}

// SessionIDs returns the distinct session ids present in the set, in first
// appearance order.
func SessionIDs(records []Record) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, record := range records {
		if id, ok := record.SessionID(); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
