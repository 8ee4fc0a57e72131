package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrisguillory/claude-session-mcp/core/config"
	"github.com/chrisguillory/claude-session-mcp/core/discovery"
	coreerrors "github.com/chrisguillory/claude-session-mcp/core/errors"
	corelineage "github.com/chrisguillory/claude-session-mcp/core/lineage"
)

const (
	sid        = "9f8e7d6c-5b4a-4321-9876-543210fedcba"
	cloneSid   = "01923456-789a-7bcd-8ef0-123456789abc"
	projectCwd = "/Users/chris/project"
)

func userLine(sessionID, slug string) string {
	slugField := ""
	if slug != "" {
		slugField = fmt.Sprintf(`,"slug":%q`, slug)
	}
	return fmt.Sprintf(`{"type":"user","uuid":"u-%s","timestamp":"2026-01-02T03:04:05.000Z","sessionId":%q,"cwd":%q,"parentUuid":null,"isSidechain":false,"userType":"external","version":"2.0.14","gitBranch":"main","message":{"role":"user","content":"hello"}%s}`,
		sessionID[:8], sessionID, projectCwd, slugField)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fixture(t *testing.T) (config.Config, *discovery.ArtifactSet) {
	t.Helper()
	root := t.TempDir()
	configuration := config.Config{
		ProjectsDir: filepath.Join(root, "projects"),
		PlansDir:    filepath.Join(root, "plans"),
		TodosDir:    filepath.Join(root, "todos"),
		StateDir:    filepath.Join(root, "state"),
		ZstdLevel:   config.DefaultZstdLevel,
	}
	projectDir := configuration.ProjectDir(projectCwd)

	writeFile(t, filepath.Join(projectDir, sid+".jsonl"),
		userLine(sid, "linked-twirling-tower")+"\n"+
			fmt.Sprintf(`{"type":"custom-title","customTitle":"Graph engine","sessionId":%q}`, sid)+"\n")
	writeFile(t, filepath.Join(projectDir, "agent-5271c147.jsonl"), userLine(sid, "")+"\n")
	writeFile(t, filepath.Join(projectDir, sid, "subagents", "agent-a1b2c3d4.jsonl"), userLine(sid, "")+"\n")
	writeFile(t, filepath.Join(projectDir, sid, "tool-results", "toolu_01.txt"), "big output\n")
	writeFile(t, filepath.Join(configuration.TodosDir, sid+"-agent-"+sid+".json"), "[]\n")
	writeFile(t, filepath.Join(configuration.PlansDir, "linked-twirling-tower.md"), "# plan\n")

	set, err := discovery.Discover(configuration, sid)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	return configuration, set
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path     string
		explicit string
		want     Format
		wantErr  bool
	}{
		{"a.json", "", FormatJSON, false},
		{"a.json.zst", "", FormatZstd, false},
		{"a.zst", "", FormatZstd, false},
		{"a.json", "json", FormatJSON, false},
		{"a.bin", "zst", FormatZstd, false},
		{"a.json", "zst", "", true},
		{"a.bin", "", "", true},
		{"a.json", "tar", "", true},
	}
	for _, testCase := range cases {
		got, err := DetectFormat(testCase.path, testCase.explicit)
		if testCase.wantErr {
			if err == nil {
				t.Fatalf("DetectFormat(%q,%q): expected error", testCase.path, testCase.explicit)
			}
			continue
		}
		if err != nil || got != testCase.want {
			t.Fatalf("DetectFormat(%q,%q) = %q, %v", testCase.path, testCase.explicit, got, err)
		}
	}
}

func TestBuildPackLoadRoundTrip(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if container.CustomTitle != "Graph engine" || len(container.Files) != 3 {
		t.Fatalf("container = %+v", container)
	}

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "s.json")
	zstPath := filepath.Join(dir, "s.json.zst")
	jsonDigest, err := Pack(container, jsonPath, FormatJSON, configuration.ZstdLevel)
	if err != nil {
		t.Fatalf("pack json: %v", err)
	}
	zstDigest, err := Pack(container, zstPath, FormatZstd, configuration.ZstdLevel)
	if err != nil {
		t.Fatalf("pack zst: %v", err)
	}
	if jsonDigest != zstDigest {
		t.Fatalf("digest differs by encoding: %s %s", jsonDigest, zstDigest)
	}

	loaded, err := Load(zstPath, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SessionID != sid || len(loaded.Files) != 3 {
		t.Fatalf("loaded = %+v", loaded)
	}
	main, err := loaded.MainFile()
	if err != nil {
		t.Fatalf("main file: %v", err)
	}
	if main.Records[0] != userLine(sid, "linked-twirling-tower") {
		t.Fatalf("record bytes changed:\n %s", main.Records[0])
	}
}

func TestPackRefusesExistingDestination(t *testing.T) {
	_, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "s.json")
	if _, err := Pack(container, dest, FormatJSON, 3); err != nil {
		t.Fatalf("pack: %v", err)
	}
	_, err = Pack(container, dest, FormatJSON, 3)
	if coreerrors.CategoryOf(err) != coreerrors.CategoryDestinationExists {
		t.Fatalf("expected destination_exists, got %v", err)
	}
}

func TestRestoreInPlaceReproducesBytes(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	original, err := os.ReadFile(set.Main)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	if err := os.RemoveAll(set.ProjectDir); err != nil {
		t.Fatalf("clear project dir: %v", err)
	}
	if err := os.RemoveAll(configuration.TodosDir); err != nil {
		t.Fatalf("clear todos: %v", err)
	}
	if err := os.RemoveAll(configuration.PlansDir); err != nil {
		t.Fatalf("clear plans: %v", err)
	}

	result, err := Restore(container, RestoreOptions{Config: configuration, InPlace: true})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.SessionID != sid {
		t.Fatalf("in-place restore changed session id: %s", result.SessionID)
	}
	restored, err := os.ReadFile(set.Main)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(restored) != string(original) {
		t.Fatalf("bytes changed through archive round trip:\n%s\n%s", original, restored)
	}
	// In-place restores do not touch the lineage ledger.
	entries, err := corelineage.Open(configuration.LineagePath()).Entries()
	if err != nil || entries != nil {
		t.Fatalf("unexpected lineage entries %v err %v", entries, err)
	}
}

func TestRestoreWithNewIDRenamesEverything(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	result, err := Restore(container, RestoreOptions{
		Config:       configuration,
		NewSessionID: cloneSid,
		Method:       "clone",
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.SessionID != cloneSid {
		t.Fatalf("session id = %s", result.SessionID)
	}

	projectDir := configuration.ProjectDir(projectCwd)
	mainBytes, err := os.ReadFile(filepath.Join(projectDir, cloneSid+".jsonl"))
	if err != nil {
		t.Fatalf("read restored main: %v", err)
	}
	text := string(mainBytes)
	if !strings.Contains(text, fmt.Sprintf(`"sessionId":%q`, cloneSid)) {
		t.Fatalf("sessionId not rewritten: %s", text)
	}
	if !strings.Contains(text, `"slug":"linked-twirling-tower-clone-01923456"`) {
		t.Fatalf("slug not derived: %s", text)
	}
	if !strings.Contains(text, `"customTitle":"Graph engine (clone-01923456)"`) {
		t.Fatalf("custom title not annotated: %s", text)
	}

	for _, wanted := range []string{
		filepath.Join(projectDir, "agent-5271c147-clone-01923456.jsonl"),
		filepath.Join(projectDir, cloneSid, "subagents", "agent-a1b2c3d4-clone-01923456.jsonl"),
		filepath.Join(projectDir, cloneSid, "tool-results", "toolu_01.txt"),
		filepath.Join(configuration.TodosDir, cloneSid+"-agent-"+sid+".json"),
		filepath.Join(configuration.PlansDir, "linked-twirling-tower-clone-01923456.md"),
	} {
		if _, err := os.Stat(wanted); err != nil {
			t.Fatalf("missing output %s: %v", wanted, err)
		}
	}

	entries, err := corelineage.Open(configuration.LineagePath()).Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("lineage entries %v err %v", entries, err)
	}
	if entries[0].ChildSessionID != cloneSid || entries[0].ParentSessionID != sid || entries[0].Method != "clone" {
		t.Fatalf("lineage entry = %+v", entries[0])
	}
	if entries[0].PathsTranslated {
		t.Fatal("paths_translated set without translation")
	}
}

func TestRestoreNoTranslateKeepsPathsVerbatim(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	target := "/home/chris/work/project"
	result, err := Restore(container, RestoreOptions{
		Config:            configuration,
		TargetProjectPath: target,
		NoTranslate:       true,
		NewSessionID:      cloneSid,
		Method:            "restore",
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.PathsTranslated {
		t.Fatal("paths_translated reported in no-translate mode")
	}
	if len(result.Findings) != 0 {
		t.Fatalf("unexpected findings: %+v", result.Findings)
	}
	mainBytes, err := os.ReadFile(filepath.Join(configuration.ProjectDir(target), cloneSid+".jsonl"))
	if err != nil {
		t.Fatalf("read restored main: %v", err)
	}
	if !strings.Contains(string(mainBytes), fmt.Sprintf(`"cwd":%q`, projectCwd)) {
		t.Fatalf("cwd rewritten despite no-translate: %s", mainBytes)
	}
	entries, err := corelineage.Open(configuration.LineagePath()).Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("lineage entries %v err %v", entries, err)
	}
	if entries[0].PathsTranslated {
		t.Fatal("paths_translated set in lineage despite no-translate")
	}
	if entries[0].TargetProjectPath != target {
		t.Fatalf("lineage target = %s", entries[0].TargetProjectPath)
	}
}

func TestRestoreIsAllOrNothing(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// A pre-existing derived plan file blocks the whole restore.
	blocking := filepath.Join(configuration.PlansDir, "linked-twirling-tower-clone-01923456.md")
	writeFile(t, blocking, "occupied\n")

	_, err = Restore(container, RestoreOptions{
		Config:       configuration,
		NewSessionID: cloneSid,
		Method:       "clone",
	})
	if coreerrors.CategoryOf(err) != coreerrors.CategoryDestinationExists {
		t.Fatalf("expected destination_exists, got %v", err)
	}
	projectDir := configuration.ProjectDir(projectCwd)
	if _, statErr := os.Stat(filepath.Join(projectDir, cloneSid+".jsonl")); !os.IsNotExist(statErr) {
		t.Fatal("main file written despite conflict")
	}
}

func TestRestoreTranslatesPaths(t *testing.T) {
	configuration, set := fixture(t)
	container, err := Build(set, "chris@mbp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	target := "/home/chris/work/project"
	result, err := Restore(container, RestoreOptions{
		Config:            configuration,
		TargetProjectPath: target,
		NewSessionID:      cloneSid,
		Method:            "restore",
		ArchivePath:       "/archives/s.json.zst",
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !result.PathsTranslated {
		t.Fatal("paths_translated not reported")
	}
	mainBytes, err := os.ReadFile(filepath.Join(configuration.ProjectDir(target), cloneSid+".jsonl"))
	if err != nil {
		t.Fatalf("read restored main: %v", err)
	}
	if !strings.Contains(string(mainBytes), fmt.Sprintf(`"cwd":%q`, target)) {
		t.Fatalf("cwd not translated: %s", mainBytes)
	}
	entries, err := corelineage.Open(configuration.LineagePath()).Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("lineage entries %v err %v", entries, err)
	}
	if !entries[0].PathsTranslated || entries[0].ArchivePath != "/archives/s.json.zst" {
		t.Fatalf("lineage entry = %+v", entries[0])
	}
}
