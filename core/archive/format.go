package archive

import (
	"fmt"
	"strings"

	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
)

// Format is the on-disk encoding of an archive container.
type Format string

const (
	FormatJSON Format = "json"
	FormatZstd Format = "zst"
)

// extensionFormats is consulted longest suffix first.
var extensionFormats = []struct {
	suffix string
	format Format
}{
	{".json.zst", FormatZstd},
	{".json", FormatJSON},
	{".zst", FormatZstd},
}

// DetectFormat resolves the archive encoding from the filename extension
// and an optional explicit format. The two must agree; a path with no
// recognized extension needs the explicit form.
func DetectFormat(path, explicit string) (Format, error) {
	var explicitFormat Format
	switch strings.TrimSpace(explicit) {
	case "":
	case string(FormatJSON):
		explicitFormat = FormatJSON
	case string(FormatZstd), "zstd":
		explicitFormat = FormatZstd
	default:
		return "", coreerrors.Wrap(fmt.Errorf("unknown archive format %q", explicit),
			coreerrors.CategoryInvalidInput, "archive_format_unknown",
			"use json or zst", false)
	}

	var fromExtension Format
	lower := strings.ToLower(path)
	for _, candidate := range extensionFormats {
		if strings.HasSuffix(lower, candidate.suffix) {
			fromExtension = candidate.format
			break
		}
	}

	switch {
	case fromExtension == "" && explicitFormat == "":
		return "", coreerrors.Wrap(fmt.Errorf("cannot infer archive format from %q", path),
			coreerrors.CategoryInvalidInput, "archive_format_ambiguous",
			"use a .json or .json.zst extension, or pass the format explicitly", false)
	case fromExtension == "":
		return explicitFormat, nil
	case explicitFormat == "" || explicitFormat == fromExtension:
		return fromExtension, nil
	default:
		return "", coreerrors.Wrap(
			fmt.Errorf("extension of %q implies %s but format %s was requested", path, fromExtension, explicitFormat),
			coreerrors.CategoryInvalidInput, "archive_format_conflict",
			"drop the explicit format or rename the file", false)
	}
}
