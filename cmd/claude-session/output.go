package main

import (
	"encoding/json"
	"fmt"
	"strings"

	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
)

func writeJSONOutput(output any, exitCode int) int {
	encoded, err := marshalOutputWithErrorEnvelope(output, exitCode)
	if err != nil {
		fmt.Println(`{"ok":false,"error":"failed to encode output","error_code":"encode_failed","error_category":"internal_failure","retryable":false}`)
		return exitInternalFailure
	}
	fmt.Println(string(encoded))
	return exitCode
}

// marshalOutputWithErrorEnvelope fills the error envelope fields from exit
// code defaults when the caller left them empty, so every failure carries
// error_code, error_category, retryable, and hint.
func marshalOutputWithErrorEnvelope(output any, exitCode int) ([]byte, error) {
	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, err
	}
	errorText := strings.TrimSpace(asString(result["error"]))
	if errorText == "" {
		return json.Marshal(result)
	}
	if strings.TrimSpace(asString(result["error_code"])) == "" {
		result["error_code"] = defaultErrorCode(exitCode)
	}
	if strings.TrimSpace(asString(result["error_category"])) == "" {
		result["error_category"] = string(defaultErrorCategory(exitCode))
	}
	if _, exists := result["retryable"]; !exists {
		result["retryable"] = false
	}
	if strings.TrimSpace(asString(result["hint"])) == "" {
		result["hint"] = defaultHint(exitCode)
	}
	return json.Marshal(result)
}

// writeError renders a failure envelope from a classified error.
func writeError(err error) int {
	exitCode := exitCodeForError(err)
	output := map[string]any{
		"ok":        false,
		"error":     err.Error(),
		"retryable": coreerrors.RetryableOf(err),
	}
	if code := coreerrors.CodeOf(err); code != "" {
		output["error_code"] = code
	}
	if category := coreerrors.CategoryOf(err); category != "" {
		output["error_category"] = string(category)
	}
	if hint := coreerrors.HintOf(err); hint != "" {
		output["hint"] = hint
	}
	return writeJSONOutput(output, exitCode)
}

func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput, coreerrors.CategoryIdentifierParse:
		return exitInvalidInput
	case coreerrors.CategorySchemaValidation:
		return exitSchemaInvalid
	case coreerrors.CategoryDiscoveryGap:
		return exitNotFound
	case coreerrors.CategoryDestinationExists:
		return exitDestinationExists
	case coreerrors.CategoryDeleteGuarded:
		return exitDeleteGuarded
	default:
		return exitInternalFailure
	}
}

func defaultErrorCategory(exitCode int) coreerrors.Category {
	switch exitCode {
	case exitInvalidInput:
		return coreerrors.CategoryInvalidInput
	case exitSchemaInvalid:
		return coreerrors.CategorySchemaValidation
	case exitNotFound:
		return coreerrors.CategoryDiscoveryGap
	case exitDestinationExists:
		return coreerrors.CategoryDestinationExists
	case exitDeleteGuarded:
		return coreerrors.CategoryDeleteGuarded
	default:
		return coreerrors.CategoryInternalFailure
	}
}

func defaultErrorCode(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "invalid_input"
	case exitSchemaInvalid:
		return "schema_invalid"
	case exitNotFound:
		return "not_found"
	case exitDestinationExists:
		return "destination_exists"
	case exitDeleteGuarded:
		return "delete_guarded"
	default:
		return "internal_failure"
	}
}

func defaultHint(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "check command usage and input values"
	case exitSchemaInvalid:
		return "the data contains shapes this version does not model"
	case exitNotFound:
		return "list sessions or pass a longer id prefix"
	case exitDestinationExists:
		return "remove the conflicting files or pick another destination"
	case exitDeleteGuarded:
		return "deleting native Claude Code data requires force"
	default:
		return "retry after checking local environment and logs"
	}
}

func asString(value any) string {
	text, _ := value.(string)
	return text
}
