// Package identity mints session ids and derives the renamed identifiers a
// clone or colliding restore needs: agent ids, plan slugs, todo filenames,
// and custom titles.
//
// Engine-created sessions get UUIDv7 ids. Anything that is not a v7 UUID is
// treated as native Claude Code data and gets extra protection on delete.
package identity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ShortIDLength is how much of a session id the derived-name suffix keeps.
const ShortIDLength = 8

var (
	agentFilePattern  = regexp.MustCompile(`^agent-((?:[a-z_]+-)?[a-f0-9]+(?:-clone-[a-f0-9]+)?)\.jsonl$`)
	titleClonePattern = regexp.MustCompile(`\s*\(clone-[0-9a-fA-F]{8}\)`)
)

// NewSessionID mints a v7 UUID. The version bit is what later marks the
// session as engine-created rather than native.
func NewSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint session id: %w", err)
	}
	return id.String(), nil
}

// IsNative reports whether a session id belongs to native Claude Code data.
// Unparseable ids count as native so the delete guard stays on the safe
// side.
func IsNative(sessionID string) bool {
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return true
	}
	return parsed.Version() != 7
}

// ShortID returns the derivation suffix for a session id.
func ShortID(sessionID string) string {
	if len(sessionID) < ShortIDLength {
		return sessionID
	}
	return sessionID[:ShortIDLength]
}

// BaseAgentID strips any prior clone suffix so repeated derivation stays
// single-level.
func BaseAgentID(agentID string) string {
	return strings.SplitN(agentID, "-clone-", 2)[0]
}

// DeriveAgentID returns the agent id a clone of newSessionID uses.
// Deriving from an already-derived id replaces the suffix instead of
// stacking a second one.
func DeriveAgentID(agentID, newSessionID string) string {
	return BaseAgentID(agentID) + "-clone-" + ShortID(newSessionID)
}

// BaseSlug strips any prior clone suffix from a plan slug.
func BaseSlug(slug string) string {
	return strings.SplitN(slug, "-clone-", 2)[0]
}

// DeriveSlug returns the plan slug a clone of newSessionID uses.
func DeriveSlug(slug, newSessionID string) string {
	return BaseSlug(slug) + "-clone-" + ShortID(newSessionID)
}

// BaseTitle strips any prior clone annotation from a custom title.
func BaseTitle(title string) string {
	return titleClonePattern.ReplaceAllString(title, "")
}

// DeriveTitle annotates a custom title with the clone's short id.
func DeriveTitle(title, newSessionID string) string {
	return BaseTitle(title) + " (clone-" + ShortID(newSessionID) + ")"
}

// AgentIDFromFilename extracts the agent id from a flat agent filename.
func AgentIDFromFilename(name string) (string, bool) {
	match := agentFilePattern.FindStringSubmatch(name)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// AgentFilename returns the flat filename for an agent id.
func AgentFilename(agentID string) string {
	return "agent-" + agentID + ".jsonl"
}

// TransformTodoFilename renames a todo file for a new primary session id.
// Only the leading session id changes; the agent portion is remapped
// separately through the agent map when the agent id appears there.
func TransformTodoFilename(name, oldSessionID, newSessionID string) string {
	if strings.HasPrefix(name, oldSessionID) {
		return newSessionID + name[len(oldSessionID):]
	}
	return name
}

// Map carries every identifier substitution one clone or restore applies.
type Map struct {
	OldSessionID string
	NewSessionID string
	// Agents maps old agent ids to derived ones.
	Agents map[string]string
	// Slugs maps old plan slugs to derived ones.
	Slugs map[string]string
}

// NewMap builds the substitution map for re-identifying a session as
// newSessionID.
func NewMap(oldSessionID, newSessionID string, agentIDs, slugs []string) Map {
	m := Map{
		OldSessionID: oldSessionID,
		NewSessionID: newSessionID,
		Agents:       make(map[string]string, len(agentIDs)),
		Slugs:        make(map[string]string, len(slugs)),
	}
	for _, agentID := range agentIDs {
		m.Agents[agentID] = DeriveAgentID(agentID, newSessionID)
	}
	for _, slug := range slugs {
		m.Slugs[slug] = DeriveSlug(slug, newSessionID)
	}
	return m
}

// Apply rewrites identifiers inside a serialized record line. Slugs first:
// they are longer strings and must not be clipped by an agent id that
// happens to be their substring. Within each map, keys are applied in a
// fixed longest-first order so a key that is a prefix of another is only
// substituted after the longer one.
func (m Map) Apply(line string) string {
	for _, old := range keysLongestFirst(m.Slugs) {
		line = strings.ReplaceAll(line, old, m.Slugs[old])
	}
	for _, old := range keysLongestFirst(m.Agents) {
		line = strings.ReplaceAll(line, old, m.Agents[old])
	}
	return line
}

func keysLongestFirst(substitutions map[string]string) []string {
	keys := make([]string, 0, len(substitutions))
	for key := range substitutions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
