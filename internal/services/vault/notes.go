// Package vault is the note-store shim between the tracker and a
// directory of markdown task notes. Task definitions live in YAML
// frontmatter; execution history, the running snapshot, and the
// deleted-set live as JSON documents under a data directory.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/riordanpawley/taskband/internal/domain"
)

const (
	noteExt              = ".md"
	frontmatterDelimiter = "---"
)

// Store reads task definitions from a vault directory and owns the data
// documents beside it.
type Store struct {
	vaultDir string
	dataDir  string
	logger   *slog.Logger
}

// NewStore creates a vault store rooted at vaultDir with data documents
// under dataDir
func NewStore(vaultDir, dataDir string, logger *slog.Logger) *Store {
	return &Store{vaultDir: vaultDir, dataDir: dataDir, logger: logger}
}

// noteMeta is the frontmatter schema of a task note. Every key is
// optional; absent keys take zero-value defaults except routine_enabled,
// which defaults to true, and routine_weekday, which defaults to unset.
type noteMeta struct {
	Title           string              `yaml:"title"`
	Project         string              `yaml:"project"`
	Routine         bool                `yaml:"routine"`
	Scheduled       string              `yaml:"scheduled"`
	RoutineType     domain.RoutineType  `yaml:"routine_type"`
	RoutineInterval int                 `yaml:"routine_interval"`
	RoutineStart    string              `yaml:"routine_start"`
	RoutineWeekday  *int                `yaml:"routine_weekday"`
	RoutineWeek     domain.MonthOrdinal `yaml:"routine_week"`
	RoutineEnabled  *bool               `yaml:"routine_enabled"`
	MovedTargetDate string              `yaml:"moved_target_date"`
}

// LoadDefinitions scans the vault directory for task notes. Notes with
// broken frontmatter degrade to plain non-routine tasks with a warning;
// a single bad note never fails the scan.
func (s *Store) LoadDefinitions() ([]*domain.TaskDefinition, error) {
	entries, err := os.ReadDir(s.vaultDir)
	if err != nil {
		return nil, &domain.VaultError{Op: "scan", Path: s.vaultDir, Err: err}
	}

	var defs []*domain.TaskDefinition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), noteExt) {
			continue
		}

		path := filepath.Join(s.vaultDir, entry.Name())
		def, err := s.readDefinition(path)
		if err != nil {
			s.logger.Warn("unreadable task note, skipping", "path", path, "error", err)
			continue
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}

func (s *Store) readDefinition(path string) (*domain.TaskDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	def := &domain.TaskDefinition{
		Title: noteStem(path),
		Path:  path,
	}

	raw, _, ok := splitFrontmatter(data)
	if !ok {
		return def, nil
	}

	var meta noteMeta
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		s.logger.Warn("malformed frontmatter, using note as plain task", "path", path, "error", err)
		return def, nil
	}

	if meta.Title != "" {
		def.Title = meta.Title
	}
	def.Project = meta.Project
	def.ScheduledTime = meta.Scheduled
	def.IsRoutine = meta.Routine

	if meta.Routine {
		rule := ruleFromMeta(meta)
		if err := rule.Validate(); err != nil {
			// Same degrade as malformed frontmatter: a plain task stays
			// visible, so the user notices and fixes the rule.
			s.logger.Warn("invalid routine rule, using note as plain task", "path", path, "error", err)
			def.IsRoutine = false
			return def, nil
		}
		def.Routine = rule
	}
	return def, nil
}

func ruleFromMeta(meta noteMeta) *domain.RoutineRule {
	rule := &domain.RoutineRule{
		Type:            meta.RoutineType,
		Interval:        meta.RoutineInterval,
		Start:           meta.RoutineStart,
		Enabled:         true,
		Weekday:         domain.WeekdayUnset,
		Week:            meta.RoutineWeek,
		MovedTargetDate: meta.MovedTargetDate,
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	if meta.RoutineWeekday != nil {
		rule.Weekday = *meta.RoutineWeekday
	}
	if meta.RoutineEnabled != nil {
		rule.Enabled = *meta.RoutineEnabled
	}
	return rule
}

// SetMovedTargetDate pins one occurrence of the routine at path to date,
// or clears the pin when date is empty. Unknown frontmatter keys are
// preserved byte-for-byte aside from YAML re-serialization; the edit
// touches only the moved_target_date entry.
func (s *Store) SetMovedTargetDate(path, date string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = domain.ErrNotFound
		}
		return &domain.VaultError{Op: "read", Path: path, Err: err}
	}

	raw, body, ok := splitFrontmatter(data)
	if !ok {
		return &domain.VaultError{Op: "update", Path: path,
			Err: fmt.Errorf("note has no frontmatter")}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &domain.VaultError{Op: "update", Path: path, Err: err}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return &domain.VaultError{Op: "update", Path: path,
			Err: fmt.Errorf("frontmatter is not a mapping")}
	}

	setMappingKey(doc.Content[0], "moved_target_date", date)

	updated, err := yaml.Marshal(doc.Content[0])
	if err != nil {
		return &domain.VaultError{Op: "update", Path: path, Err: err}
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")
	buf.Write(updated)
	buf.WriteString(frontmatterDelimiter + "\n")
	buf.Write(body)

	if err := atomic.WriteFile(path, &buf); err != nil {
		return &domain.VaultError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Rename moves the note at oldPath to newTitle within the same
// directory and returns the new path. Recording the alias is the
// caller's job; the vault only moves the file.
func (s *Store) Rename(oldPath, newTitle string) (string, error) {
	newPath := filepath.Join(filepath.Dir(oldPath), newTitle+noteExt)
	if newPath == oldPath {
		return oldPath, nil
	}
	if _, err := os.Stat(newPath); err == nil {
		return "", &domain.VaultError{Op: "rename", Path: newPath,
			Err: fmt.Errorf("a note with that name already exists")}
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = domain.ErrNotFound
		}
		return "", &domain.VaultError{Op: "rename", Path: oldPath, Err: err}
	}
	return newPath, nil
}

// Create writes a minimal new task note and returns its path.
func (s *Store) Create(title, scheduled string) (string, error) {
	path := filepath.Join(s.vaultDir, title+noteExt)
	if _, err := os.Stat(path); err == nil {
		return "", &domain.VaultError{Op: "create", Path: path,
			Err: fmt.Errorf("a note with that name already exists")}
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")
	fmt.Fprintf(&buf, "title: %s\n", title)
	if scheduled != "" {
		fmt.Fprintf(&buf, "scheduled: %q\n", scheduled)
	}
	buf.WriteString(frontmatterDelimiter + "\n")

	if err := atomic.WriteFile(path, &buf); err != nil {
		return "", &domain.VaultError{Op: "create", Path: path, Err: err}
	}
	return path, nil
}

// splitFrontmatter separates a note into its raw frontmatter YAML and
// the remaining body. ok is false when the note has no frontmatter
// block.
func splitFrontmatter(data []byte) (raw, body []byte, ok bool) {
	const delim = frontmatterDelimiter + "\n"
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, data, false
	}

	rest := data[len(delim):]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		// Closing delimiter at EOF without trailing newline. Strip only
		// the delimiter; the newline before it terminates the YAML.
		if bytes.HasSuffix(rest, []byte("\n"+frontmatterDelimiter)) {
			return rest[:len(rest)-len(frontmatterDelimiter)], nil, true
		}
		return nil, data, false
	}

	return rest[:end+1], rest[end+1+len(delim):], true
}

// setMappingKey updates key in a YAML mapping node, appending it when
// absent and removing it when value is empty.
func setMappingKey(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		if value == "" {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
		} else {
			mapping.Content[i+1].SetString(value)
		}
		return
	}
	if value == "" {
		return
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	valNode := &yaml.Node{}
	valNode.SetString(value)
	mapping.Content = append(mapping.Content, keyNode, valNode)
}

func noteStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), noteExt)
}
