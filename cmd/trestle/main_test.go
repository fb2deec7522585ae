package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/trestle/internal/config"
	"github.com/hylla/trestle/internal/domain"
	"github.com/hylla/trestle/internal/platform"
	"github.com/hylla/trestle/internal/tui"
)

// TestMain pins dev mode off so tests never depend on the caller's environment.
func TestMain(m *testing.M) {
	_ = os.Setenv("TRESTLE_DEV_MODE", "false")
	_ = os.Unsetenv("TRESTLE_CONFIG")
	_ = os.Unsetenv("TRESTLE_DB_PATH")
	_ = os.Unsetenv("TRESTLE_APP_NAME")
	os.Exit(m.Run())
}

type fakeProgram struct {
	model  tea.Model
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return f.model, f.runErr
}

// stubProgram swaps programFactory for the duration of a test and records the model it receives.
func stubProgram(t *testing.T, runErr error) *tea.Model {
	t.Helper()
	orig := programFactory
	t.Cleanup(func() { programFactory = orig })
	var got tea.Model
	programFactory = func(m tea.Model) program {
		got = m
		return fakeProgram{model: m, runErr: runErr}
	}
	return &got
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestRunStartsProgram(t *testing.T) {
	got := stubProgram(t, nil)

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "trestle.db")
	cfgPath := filepath.Join(tmp, "config.toml")
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := (*got).(tui.Model); !ok {
		t.Fatalf("expected tui.Model handed to the program, got %T", *got)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database created, stat error %v", err)
	}
}

func TestRunSeedsGridFromConfigOnce(t *testing.T) {
	stubProgram(t, nil)

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "trestle.db")
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, `
[seed]
rows = ["Backlog"]
columns = ["Mon", "Tue"]
elements = [{ name = "Standup", column = 2, row = 1 }]
`)
	args := []string{"--db", dbPath, "--config", cfgPath}
	for i := 0; i < 2; i++ {
		if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
			t.Fatalf("run() #%d error = %v", i+1, err)
		}
	}

	var out strings.Builder
	if err := run(context.Background(), append(args, "export"), &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	got := out.String()
	if strings.Count(got, `"name": "Standup"`) != 1 {
		t.Fatalf("expected exactly one seeded element, got %s", got)
	}
	if !strings.Contains(got, `"name": "Tue"`) || strings.Contains(got, `"name": "Row 1"`) {
		t.Fatalf("expected configured seed instead of defaults, got %s", got)
	}
}

func TestRunProgramErrorIsWrapped(t *testing.T) {
	stubProgram(t, errors.New("terminal gone"))

	tmp := t.TempDir()
	err := run(context.Background(), []string{"--db", filepath.Join(tmp, "trestle.db"), "--config", filepath.Join(tmp, "config.toml")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run tui program") {
		t.Fatalf("expected wrapped program error, got %v", err)
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--nope"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"launch"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	stubProgram(t, nil)

	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[logging]\nlevel = \"loud\"\n")
	err := run(context.Background(), []string{"--db", filepath.Join(tmp, "trestle.db"), "--config", cfgPath}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected invalid logging level error, got %v", err)
	}
}

func TestRunExportImportRoundTrip(t *testing.T) {
	stubProgram(t, nil)

	tmp := t.TempDir()
	srcDB := filepath.Join(tmp, "src.db")
	cfgPath := filepath.Join(tmp, "config.toml")
	if err := run(context.Background(), []string{"--db", srcDB, "--config", cfgPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("seed run() error = %v", err)
	}

	outPath := filepath.Join(tmp, "nested", "grid.yaml")
	if err := run(context.Background(), []string{"--db", srcDB, "--config", cfgPath, "export", "--out", outPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "version: trestle.snapshot.v1") {
		t.Fatalf("expected YAML snapshot from .yaml extension, got %s", content)
	}

	dstDB := filepath.Join(tmp, "dst.db")
	if err := run(context.Background(), []string{"--db", dstDB, "--config", cfgPath, "import", "--in", outPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}
	var out strings.Builder
	if err := run(context.Background(), []string{"--db", dstDB, "--config", cfgPath, "export", "--format", "json"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export json) error = %v", err)
	}
	if !strings.Contains(out.String(), `"name": "Item 2"`) {
		t.Fatalf("expected imported elements in export, got %s", out.String())
	}
}

func TestRunExportAndImportErrors(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "trestle.db")
	cfgPath := filepath.Join(tmp, "config.toml")

	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--format", "xml"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected export error for unknown format")
	}
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected import error for missing --in")
	}

	badIn := filepath.Join(tmp, "bad.json")
	writeConfig(t, badIn, "{")
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", badIn}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected import decode error")
	}
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", filepath.Join(tmp, "missing.json")}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected import error for missing file")
	}
}

func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "env.db")
	cfgPath := filepath.Join(tmp, "env.toml")
	writeConfig(t, cfgPath, "[database]\npath = \"/tmp/ignore-me.db\"\n")

	t.Setenv("TRESTLE_CONFIG", cfgPath)
	t.Setenv("TRESTLE_DB_PATH", dbPath)

	if err := run(context.Background(), []string{"export", "--out", filepath.Join(tmp, "out.json")}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export with env paths) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db created at env path, stat error %v", err)
	}
}

func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	if err := run(context.Background(), []string{"--app", "trestlex", "--dev", "--config", cfgPath, "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	for _, want := range []string{"app: trestlex", "dev_mode: true", "db: ", "log_dir: "} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in paths output, got %q", want, output)
		}
	}
	if !strings.Contains(output, "trestlex-dev") {
		t.Fatalf("expected dev app dir in paths output, got %q", output)
	}
}

func TestRunHistoryListsChanges(t *testing.T) {
	stubProgram(t, nil)

	tmp := t.TempDir()
	args := []string{"--db", filepath.Join(tmp, "trestle.db"), "--config", filepath.Join(tmp, "config.toml")}

	var out strings.Builder
	if err := run(context.Background(), append(slices.Clone(args), "history"), &out, io.Discard); err != nil {
		t.Fatalf("run(history) error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "no changes recorded" {
		t.Fatalf("expected empty history, got %q", out.String())
	}

	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out.Reset()
	if err := run(context.Background(), append(slices.Clone(args), "history", "--limit", "5"), &out, io.Discard); err != nil {
		t.Fatalf("run(history) error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "seed") || !strings.Contains(lines[0], `elements="2"`) {
		t.Fatalf("expected one seed event, got %q", out.String())
	}
}

func TestWriteHistoryFormatsMetadata(t *testing.T) {
	var out strings.Builder
	err := writeHistory(&out, []domain.ChangeEvent{{
		Operation:   domain.ChangeOperationMove,
		SubjectKind: domain.SubjectElement,
		SubjectID:   1,
		Metadata:    map[string]string{"to_row": "2", "from_row": "1"},
		OccurredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("writeHistory() error = %v", err)
	}
	want := `2026-03-01T12:00:00Z  move     element-1   from_row="1" to_row="2"`
	if got := strings.TrimSpace(out.String()); got != want {
		t.Fatalf("writeHistory() = %q, want %q", got, want)
	}
}

func TestRunResolveSingleTick(t *testing.T) {
	tick := `{
  "active": "element-1",
  "regions": [
    {"id": "cell-1-1", "bounds": {"left": 0, "top": 0, "width": 10, "height": 10}},
    {"id": "cell-2-1", "bounds": {"left": 10, "top": 0, "width": 10, "height": 10}}
  ],
  "pointer": {"x": 15, "y": 5},
  "dragged": {"left": 12, "top": 4, "width": 6, "height": 1},
  "elements": [{"element_id": 1, "row_id": 1, "column_id": 1}]
}`
	in := filepath.Join(t.TempDir(), "tick.json")
	writeConfig(t, in, tick)

	var out strings.Builder
	if err := run(context.Background(), []string{"resolve", "--in", in}, &out, io.Discard); err != nil {
		t.Fatalf("run(resolve) error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "cell-2-1" {
		t.Fatalf("expected cell-2-1, got %q", got)
	}
}

func TestRunResolveSequenceUsesStickyFallback(t *testing.T) {
	ticks := `[
  {
    "active": "element-1",
    "regions": [{"id": "cell-2-1", "bounds": {"left": 10, "top": 0, "width": 10, "height": 10}}],
    "pointer": {"x": 15, "y": 5},
    "dragged": {"left": 12, "top": 4, "width": 6, "height": 1}
  },
  {
    "active": "element-1",
    "regions": [{"id": "cell-2-1", "bounds": {"left": 10, "top": 0, "width": 10, "height": 10}}],
    "pointer": {"x": 50, "y": 50},
    "dragged": {"left": 48, "top": 49, "width": 6, "height": 1}
  },
  {
    "active": "element-1",
    "regions": []
  }
]`
	var out bytes.Buffer
	if err := runResolve(strings.NewReader(ticks), &out); err != nil {
		t.Fatalf("runResolve() error = %v", err)
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"cell-2-1", "cell-2-1", "(empty)"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunResolveRejectsBadInput(t *testing.T) {
	for name, input := range map[string]string{
		"empty":     "   ",
		"malformed": "{",
		"array":     "[{]",
	} {
		t.Run(name, func(t *testing.T) {
			if err := runResolve(strings.NewReader(input), io.Discard); err == nil {
				t.Fatalf("expected error for %q", input)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TRESTLE_BOOL_TEST", "true")
	got, ok := parseBoolEnv("TRESTLE_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("TRESTLE_BOOL_TEST", "not-bool")
	if _, ok = parseBoolEnv("TRESTLE_BOOL_TEST"); ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

func TestSeedAndKeyConfigMapping(t *testing.T) {
	cfg := config.Default("/tmp/trestle.db", "/tmp/trestle/log")
	seed := seedFromConfig(cfg.Seed)
	if len(seed.Rows) != 3 || len(seed.Columns) != 3 || len(seed.Elements) != 2 {
		t.Fatalf("unexpected seed %#v", seed)
	}
	if seed.Elements[1].Name != "Item 2" || seed.Elements[1].Column != 1 || seed.Elements[1].Row != 1 {
		t.Fatalf("unexpected seeded element %#v", seed.Elements[1])
	}

	keys := toTUIKeyConfig(config.KeyConfig{PickUp: "p", Copy: "c"})
	if keys.PickUp != "p" || keys.Copy != "c" || keys.Drop != "" {
		t.Fatalf("unexpected key mapping %#v", keys)
	}
}

// pathsOutput runs the paths command and returns its key: value lines.
func pathsOutput(t *testing.T, args ...string) map[string]string {
	t.Helper()
	var out strings.Builder
	if err := run(context.Background(), append(args, "paths"), &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	fields := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if ok {
			fields[key] = value
		}
	}
	return fields
}

func TestRunDevModeWritesLogFileOnly(t *testing.T) {
	stubProgram(t, nil)

	workspace := t.TempDir()
	dbPath := filepath.Join(workspace, "trestle.db")
	cfgPath := filepath.Join(workspace, "config.toml")
	writeConfig(t, cfgPath, "[logging.dev_file]\ndir = \"logs\"\n")

	paths := pathsOutput(t, "--dev", "--db", dbPath, "--config", cfgPath)
	logDir := filepath.Join(workspace, "logs")
	if paths["log_dir"] != logDir {
		t.Fatalf("expected relative log dir resolved against the config dir, got %q", paths["log_dir"])
	}
	if filepath.Dir(paths["dev_log"]) != logDir {
		t.Fatalf("expected dev_log inside log_dir, got %q", paths["dev_log"])
	}

	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--dev", "--db", dbPath, "--config", cfgPath}, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".log" {
		t.Fatalf("expected one .log file in %s, got %v", logDir, entries)
	}
	content, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "starting tui program loop") {
		t.Fatalf("expected TUI lifecycle entries in log file, got %q", content)
	}
	if strings.Contains(stderr.String(), "starting tui program loop") {
		t.Fatalf("expected console muted while the TUI runs, got %q", stderr.String())
	}
}

func TestRunPathsReportsPlatformLogDirByDefault(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	paths := pathsOutput(t, "--app", "trestlex", "--dev", "--config", cfgPath)

	want, err := platform.DefaultPathsWithOptions(platform.Options{AppName: "trestlex", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if paths["log_dir"] != want.LogDir {
		t.Fatalf("expected log_dir %q, got %q", want.LogDir, paths["log_dir"])
	}
	if filepath.Dir(paths["dev_log"]) != want.LogDir || !strings.HasPrefix(filepath.Base(paths["dev_log"]), "trestlex-dev-") {
		t.Fatalf("expected dev_log named for the dev app inside %q, got %q", want.LogDir, paths["dev_log"])
	}

	off := pathsOutput(t, "--app", "trestlex", "--config", cfgPath)
	if off["dev_log"] != "off" {
		t.Fatalf("expected dev_log off outside dev mode, got %q", off["dev_log"])
	}
}

func TestRuntimeLoggerConsoleToggle(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newRuntimeLogger(&buf, "trestle", false, config.LoggingConfig{Level: "debug"}, nil)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.Debug("drag started", "session", "sess-1")
	if !strings.Contains(buf.String(), "drag started") {
		t.Fatalf("expected console output, got %q", buf.String())
	}

	buf.Reset()
	logger.SetConsoleEnabled(false)
	logger.Warn("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected muted console, got %q", buf.String())
	}
	if logger.DevLogPath() != "" {
		t.Fatalf("expected no dev log outside dev mode, got %q", logger.DevLogPath())
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := newRuntimeLogger(&buf, "trestle", false, config.LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestRuntimeLoggerWithTagsEverySink(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()
	day := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	cfg := config.LoggingConfig{Level: "debug", DevFile: config.DevFileConfig{Enabled: true, Dir: dir}}
	logger, err := newRuntimeLogger(&console, "trestle-dev", true, cfg, func() time.Time { return day })
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	if want := platform.LogFile(dir, "trestle-dev", day); logger.DevLogPath() != want {
		t.Fatalf("expected dev log %q, got %q", want, logger.DevLogPath())
	}

	session := logger.With("session", "sess-1")
	session.Debug("drag started", "active", "element-1")
	logger.SetConsoleEnabled(false)
	session.Warn("drag commit failed")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "session=sess-1") || !strings.Contains(console.String(), "drag started") {
		t.Fatalf("expected session field on console, got %q", console.String())
	}
	if strings.Contains(console.String(), "drag commit failed") {
		t.Fatalf("expected derived logger to follow the console mute, got %q", console.String())
	}
	content, err := os.ReadFile(logger.DevLogPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Count(string(content), "session=sess-1") != 2 {
		t.Fatalf("expected both events tagged in the dev log, got %q", content)
	}
}
