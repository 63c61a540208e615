package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "play", "migrate", "seed"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v", name, err)
		}
	}
}

func TestSetupLoggingLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogging("debug", false)
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", zerolog.GlobalLevel())
	}
	setupLogging("nonsense", false)
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", zerolog.GlobalLevel())
	}
}

func TestPlayCommandFromFile(t *testing.T) {
	dir := t.TempDir()
	questions := filepath.Join(dir, "trivia.yaml")
	content := `id: trivia
questions:
  - prompt: Capital of France?
    options: [Paris, Rome]
    answer: Paris
`
	if err := os.WriteFile(questions, []byte(content), 0o600); err != nil {
		t.Fatalf("write questions: %v", err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("s\nc\n1\nn\n"))
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "play", "--file", questions, "--set", "trivia"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out.String(), "Final score: 1/1") {
		t.Fatalf("expected final score, got:\n%s", out.String())
	}
}

func TestServiceConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	svc := serviceConfig(cfg)
	if svc.DefaultSet != "general" || svc.Session.Tick == 0 || svc.Session.AdvanceDelay == 0 {
		t.Fatalf("unexpected defaults: %+v", svc)
	}
	if err := sampleSets()["general"].Validate(); err != nil {
		t.Fatalf("sample set invalid: %v", err)
	}
}
