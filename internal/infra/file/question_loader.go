// Package file loads question sets from YAML or JSON files.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"compquiz/internal/domain"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".yaml", ".yml", ".json"}

// QuestionLoader reads question sets from disk. Root is either a single
// file, served under any set id, or a directory holding <setID>.yaml files.
type QuestionLoader struct {
	root string
}

func NewQuestionLoader(root string) *QuestionLoader {
	return &QuestionLoader{root: root}
}

func (l *QuestionLoader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	path, err := l.resolve(setID)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	set, err := ReadQuestionSet(path)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if set.ID == "" {
		set.ID = setID
	}
	return set, nil
}

func (l *QuestionLoader) resolve(setID string) (string, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return "", fmt.Errorf("question source %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return l.root, nil
	}
	if setID == "" || strings.ContainsAny(setID, `/\`) || strings.Contains(setID, "..") {
		return "", fmt.Errorf("set %q: %w", setID, domain.ErrQuestionSetNotFound)
	}
	for _, ext := range extensions {
		path := filepath.Join(l.root, setID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("set %q: %w", setID, domain.ErrQuestionSetNotFound)
}

// ReadQuestionSet parses a set document, or a bare list of questions.
func ReadQuestionSet(path string) (domain.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.QuestionSet{}, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("parse %s: %w", path, domain.ErrNoQuestions)
	}

	var set domain.QuestionSet
	switch root := doc.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&set.Questions); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case yaml.MappingNode:
		if err := root.Decode(&set); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return domain.QuestionSet{}, fmt.Errorf("decode %s: unexpected document kind", path)
	}

	if set.ID == "" {
		set.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return set, nil
}
