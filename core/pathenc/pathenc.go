// Package pathenc derives on-disk project directory names from filesystem
// paths the way Claude Code does: `/`, `.`, space, and `~` each become `-`.
//
// The encoding is lossy and there is deliberately no decode function. The
// real project path must always come from the `cwd` field of session
// records, never from a directory name.
package pathenc

import "strings"

var encoder = strings.NewReplacer("/", "-", ".", "-", " ", "-", "~", "-")

// Encode returns the directory name Claude Code uses for a project path.
//
//	Encode("/Users/chris/project")        == "-Users-chris-project"
//	Encode("/Users/chris/My Project.app") == "-Users-chris-My-Project-app"
func Encode(path string) string {
	return encoder.Replace(path)
}
