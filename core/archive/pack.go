package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	"github.com/chrisguillory/claude-session-mcp/core/fsx"
	"github.com/chrisguillory/claude-session-mcp/core/jcs"
	schema "github.com/chrisguillory/claude-session-mcp/core/schema/v1/archive"
	"github.com/chrisguillory/claude-session-mcp/core/schema/v1/session"
	"github.com/chrisguillory/claude-session-mcp/core/schema/validate"
)

// Pack writes a container to destPath in the given format and returns the
// sha256 digest of the canonical (RFC 8785) container JSON. The digest is
// encoding independent: json and zst archives of the same container match.
func Pack(container *schema.Archive, destPath string, format Format, zstdLevel int) (string, error) {
	encoded, err := json.MarshalIndent(container, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}
	encoded = append(encoded, '\n')

	digest, err := jcs.DigestJCS(encoded)
	if err != nil {
		return "", fmt.Errorf("digest archive: %w", err)
	}

	payload := encoded
	if format == FormatZstd {
		payload, err = compress(encoded, zstdLevel)
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("create archive dir: %w", err),
			coreerrors.CategoryIOFailure, "archive_dir_create_failed", "", false)
	}
	if err := fsx.WriteFileExclusive(destPath, payload, 0o644); err != nil {
		return "", coreerrors.Wrap(err,
			coreerrors.CategoryDestinationExists, "archive_destination_exists",
			"pick a different output path", false)
	}
	return digest, nil
}

// Load reads, decompresses, and fully validates a container: first the
// container schema, then every record line through the typed decoder. A
// container that fails either check is rejected whole.
func Load(path, explicitFormat string) (*schema.Archive, error) {
	format, err := DetectFormat(path, explicitFormat)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- archive path is explicit user input.
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("read archive: %w", err),
			coreerrors.CategoryIOFailure, "archive_read_failed",
			"check that the archive file exists", false)
	}
	if format == FormatZstd {
		payload, err = decompress(payload)
		if err != nil {
			return nil, err
		}
	}

	containerSchema, err := validate.Compile([]byte(schema.Schema))
	if err != nil {
		return nil, fmt.Errorf("compile archive schema: %w", err)
	}
	if err := validate.JSON(containerSchema, payload); err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("archive %s: %w", path, err),
			coreerrors.CategorySchemaValidation, "archive_schema_invalid",
			"the file is not a session archive this version understands", false)
	}

	var container schema.Archive
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&container); err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("decode archive: %w", err),
			coreerrors.CategorySchemaValidation, "archive_decode_failed", "", false)
	}

	for _, file := range container.Files {
		for lineNumber, line := range file.Records {
			if _, err := session.DecodeRecord([]byte(line)); err != nil {
				return nil, coreerrors.Wrap(
					fmt.Errorf("archive file %s line %d: %w", file.Name, lineNumber+1, err),
					coreerrors.CategorySchemaValidation, "archive_record_invalid",
					"the archive contains a record shape this version does not model", false)
			}
		}
	}
	return &container, nil
}

func compress(data []byte, level int) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := zstd.NewWriter(&buffer,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("compress archive: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("flush zstd: %w", err)
	}
	return buffer.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	reader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("init zstd: %w", err),
			coreerrors.CategorySchemaValidation, "archive_not_zstd",
			"the file does not look like zstd data", false)
	}
	defer reader.Close()
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("decompress archive: %w", err),
			coreerrors.CategorySchemaValidation, "archive_zstd_corrupt", "", false)
	}
	return decoded, nil
}
