package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"compquiz/internal/domain"
)

const setYAML = `id: general
title: General knowledge
questions:
  - prompt: What is 2 + 2?
    options: ["3", "4", "5"]
    answer: "4"
  - prompt: Largest planet?
    options: [Mars, Jupiter]
    answer: Jupiter
`

const listJSON = `[
  {"prompt": "HTTP default port?", "options": ["80", "443"], "answer": "80"}
]`

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "general.yaml"), setYAML)
	writeFile(t, filepath.Join(dir, "net.json"), listJSON)

	loader := NewQuestionLoader(dir)

	set, err := loader.LoadQuestionSet(context.Background(), "general")
	if err != nil {
		t.Fatalf("load general: %v", err)
	}
	if set.Title != "General knowledge" || len(set.Questions) != 2 {
		t.Fatalf("unexpected set: %+v", set)
	}
	if set.Questions[1].Answer != "Jupiter" {
		t.Fatalf("expected Jupiter, got %q", set.Questions[1].Answer)
	}

	net, err := loader.LoadQuestionSet(context.Background(), "net")
	if err != nil {
		t.Fatalf("load net: %v", err)
	}
	if net.ID != "net" || len(net.Questions) != 1 {
		t.Fatalf("unexpected bare list set: %+v", net)
	}
}

func TestLoadSingleFileServesAnySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	writeFile(t, path, setYAML)

	set, err := NewQuestionLoader(path).LoadQuestionSet(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.ID != "general" {
		t.Fatalf("expected id from document, got %q", set.ID)
	}
}

func TestLoadMissingSet(t *testing.T) {
	loader := NewQuestionLoader(t.TempDir())

	for _, id := range []string{"missing", "../etc/passwd"} {
		_, err := loader.LoadQuestionSet(context.Background(), id)
		if !errors.Is(err, domain.ErrQuestionSetNotFound) {
			t.Fatalf("set %q: expected not found, got %v", id, err)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
