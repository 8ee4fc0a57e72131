// Package lineage defines the ledger entry linking a derived session to the
// session it came from.
package lineage

// Methods a derived session can be created by.
const (
	MethodClone   = "clone"
	MethodRestore = "restore"
)

// Entry is one append-only ledger line.
type Entry struct {
	ChildSessionID    string `json:"child_session_id"`
	ParentSessionID   string `json:"parent_session_id"`
	CreatedAt         string `json:"created_at"`
	Method            string `json:"method"`
	ParentProjectPath string `json:"parent_project_path,omitempty"`
	TargetProjectPath string `json:"target_project_path,omitempty"`
	ParentMachineID   string `json:"parent_machine_id,omitempty"`
	TargetMachineID   string `json:"target_machine_id,omitempty"`
	PathsTranslated   bool   `json:"paths_translated"`
	// ArchivePath is set for restores, pointing at the container the
	// session came from.
	ArchivePath string `json:"archive_path,omitempty"`
}
