package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["session_id"],
  "properties": {
    "session_id": {"type": "string", "minLength": 1}
  }
}`

func TestJSONValidAndInvalid(t *testing.T) {
	schema, err := Compile([]byte(testSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := JSON(schema, []byte(`{"session_id":"abc"}`)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	if err := JSON(schema, []byte(`{"session_id":""}`)); err == nil {
		t.Fatal("expected empty session_id to fail validation")
	}
	if err := JSON(schema, []byte(`{}`)); err == nil {
		t.Fatal("expected missing session_id to fail validation")
	}
}

func TestJSONFile(t *testing.T) {
	schema, err := Compile([]byte(testSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"session_id":"abc"}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := JSONFile(schema, path); err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}
}

func TestJSONLReportsOffendingLine(t *testing.T) {
	schema, err := Compile([]byte(testSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	data := []byte(`{"session_id":"one"}
{"session_id":"two"}

{"session_id":42}
`)
	err = JSONL(schema, data)
	if err == nil {
		t.Fatal("expected jsonl validation failure")
	}
	if !strings.Contains(err.Error(), "jsonl line 4") {
		t.Fatalf("error %q does not name line 4", err.Error())
	}
}
