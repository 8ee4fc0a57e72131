// Package clone duplicates a session under a fresh identity: new session
// id, derived agent ids, derived plan slugs, annotated custom title, and a
// lineage entry linking child to parent.
//
// A clone is an archive round trip that never touches disk in between: the
// artifact set is packed into an in-memory container and restored through
// the same all-or-nothing writer a file restore uses.
package clone

import (
	"github.com/chrisguillory/claude-session-mcp/core/archive"
	"github.com/chrisguillory/claude-session-mcp/core/config"
	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	"github.com/chrisguillory/claude-session-mcp/core/lineage"
	lineageschema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/lineage"
)

type Options struct {
	Config config.Config
	// SessionID accepts a full id or a unique prefix.
	SessionID string
	// TargetProjectPath re-homes the clone; empty clones in place next to
	// the parent.
	TargetProjectPath string
	// NoTranslate re-homes without rewriting in-record paths.
	NoTranslate bool
	// NewSessionID pre-mints the clone id; empty mints a fresh v7. Derived
	// names embed the id's first 8 chars, so callers cloning the same
	// session in quick succession can pass distinct ids to avoid name
	// collisions between siblings.
	NewSessionID string
}

type Result struct {
	archive.RestoreResult
	ParentSessionID string
	Gaps            []string
}

// Clone performs the full pipeline. On any error nothing has been written,
// except the failure hint says otherwise.
func Clone(options Options) (*Result, error) {
	sessionID, err := discovery.Resolve(options.Config, options.SessionID)
	if err != nil {
		return nil, err
	}
	set, err := discovery.Discover(options.Config, sessionID)
	if err != nil {
		return nil, err
	}
	container, err := archive.Build(set, lineage.MachineID())
	if err != nil {
		return nil, err
	}
	restored, err := archive.Restore(container, archive.RestoreOptions{
		Config:            options.Config,
		TargetProjectPath: options.TargetProjectPath,
		NoTranslate:       options.NoTranslate,
		NewSessionID:      options.NewSessionID,
		Method:            lineageschema.MethodClone,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		RestoreResult:   *restored,
		ParentSessionID: sessionID,
		Gaps:            set.Gaps,
	}, nil
}
