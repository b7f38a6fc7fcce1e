// Package file implements a filesystem FlowStore: a projects.json index,
// one directory per project with its metadata, and per-flow JSON documents
// with a YAML sidecar for hand editing. All writes are atomic
// (temp file, fsync, rename) so a crash never leaves a half-written flow.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/serialization"
)

const (
	indexFile    = "projects.json"
	metadataFile = "metadata.json"
	flowsDir     = "flows"
)

// Store is a filesystem-backed FlowStore with project management on top.
type Store struct {
	root  string
	codec serialization.Codec

	mu sync.Mutex
}

type projectIndex struct {
	Projects []domain.Project `json:"projects"`
}

// NewStore opens (or initializes) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create root: %w", err)
	}
	s := &Store{root: dir, codec: serialization.JSON{}}
	if _, err := os.Stat(s.indexPath()); errors.Is(err, os.ErrNotExist) {
		if err := s.writeIndex(&projectIndex{Projects: []domain.Project{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SaveFlow writes the snapshot as JSON plus its YAML sidecar.
func (s *Store) SaveFlow(ctx context.Context, projectID string, flow *domain.Flow) error {
	if flow == nil || flow.ID == "" {
		return fmt.Errorf("file store: flow id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.flowDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file store: create flow dir: %w", err)
	}

	data, err := s.codec.Marshal(flow)
	if err != nil {
		return fmt.Errorf("file store: marshal flow: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, flow.ID+".json"), data); err != nil {
		return err
	}

	sidecar, err := flowyaml.Encode(flow)
	if err != nil {
		return fmt.Errorf("file store: yaml sidecar: %w", err)
	}
	return writeAtomic(filepath.Join(dir, flow.ID+".yaml"), sidecar)
}

// LoadFlow reads a snapshot from its JSON document.
func (s *Store) LoadFlow(ctx context.Context, projectID, flowID string) (*domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.flowDir(projectID), flowID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("file store: read flow: %w", err)
	}
	var flow domain.Flow
	if err := s.codec.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("file store: unmarshal flow %s: %w", flowID, err)
	}
	if flow.ID == "" {
		flow.ID = flowID
	}
	return &flow, nil
}

// DeleteFlow removes the JSON document and its sidecar. Absent flows are
// not an error.
func (s *Store) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.flowDir(projectID)
	for _, name := range []string{flowID + ".json", flowID + ".yaml"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file store: delete flow: %w", err)
		}
	}
	return nil
}

// ListFlows returns the summaries of every stored flow in a project,
// sorted by id.
func (s *Store) ListFlows(ctx context.Context, projectID string) ([]ports.FlowSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.flowDir(projectID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ports.FlowSummary{}, nil
		}
		return nil, fmt.Errorf("file store: list flows: %w", err)
	}

	summaries := make([]ports.FlowSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		summary := ports.FlowSummary{ID: id, Name: id}
		data, err := os.ReadFile(filepath.Join(s.flowDir(projectID), entry.Name()))
		if err == nil {
			var flow domain.Flow
			if s.codec.Unmarshal(data, &flow) == nil && flow.Name != "" {
				summary.Name = flow.Name
				summary.Description = flow.Description
			}
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// RenameFlow moves a flow's documents to a new id.
func (s *Store) RenameFlow(ctx context.Context, projectID, oldID, newID string) error {
	if newID == "" {
		return fmt.Errorf("file store: new flow id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.flowDir(projectID)
	if _, err := os.Stat(filepath.Join(dir, oldID+".json")); errors.Is(err, os.ErrNotExist) {
		return domain.ErrFlowNotFound
	}
	if err := os.Rename(filepath.Join(dir, oldID+".json"), filepath.Join(dir, newID+".json")); err != nil {
		return fmt.Errorf("file store: rename flow: %w", err)
	}
	if err := os.Rename(filepath.Join(dir, oldID+".yaml"), filepath.Join(dir, newID+".yaml")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file store: rename sidecar: %w", err)
	}
	return nil
}

// CreateProject registers a project under a slug derived from its name.
func (s *Store) CreateProject(ctx context.Context, name, description string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return domain.Project{}, err
	}
	taken := make(map[string]bool, len(index.Projects))
	for _, p := range index.Projects {
		taken[p.ID] = true
	}

	project := domain.Project{
		ID:          uniqueSlug(name, "project", taken),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if project.Name == "" {
		project.Name = project.ID
	}

	if err := os.MkdirAll(s.flowDir(project.ID), 0o755); err != nil {
		return domain.Project{}, fmt.Errorf("file store: create project dir: %w", err)
	}
	if err := s.writeProjectMetadata(project); err != nil {
		return domain.Project{}, err
	}

	index.Projects = append(index.Projects, project)
	if err := s.writeIndex(index); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ListProjects returns the index entries.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return index.Projects, nil
}

// GetProject returns one project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findProject(projectID)
}

// RenameProject updates the project's display name.
func (s *Store) RenameProject(ctx context.Context, projectID, name string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, fmt.Errorf("file store: project name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return domain.Project{}, err
	}
	for i := range index.Projects {
		if index.Projects[i].ID == projectID {
			index.Projects[i].Name = name
			if err := s.writeProjectMetadata(index.Projects[i]); err != nil {
				return domain.Project{}, err
			}
			if err := s.writeIndex(index); err != nil {
				return domain.Project{}, err
			}
			return index.Projects[i], nil
		}
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

// DeleteProject removes a project directory and its index entry.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := index.Projects[:0]
	found := false
	for _, p := range index.Projects {
		if p.ID == projectID {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return domain.ErrProjectNotFound
	}
	index.Projects = kept

	if err := os.RemoveAll(s.projectDir(projectID)); err != nil {
		return fmt.Errorf("file store: delete project: %w", err)
	}
	return s.writeIndex(index)
}

func (s *Store) findProject(projectID string) (domain.Project, error) {
	index, err := s.readIndex()
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range index.Projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

func (s *Store) indexPath() string          { return filepath.Join(s.root, indexFile) }
func (s *Store) projectDir(id string) string { return filepath.Join(s.root, id) }
func (s *Store) flowDir(id string) string    { return filepath.Join(s.projectDir(id), flowsDir) }

func (s *Store) readIndex() (*projectIndex, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &projectIndex{Projects: []domain.Project{}}, nil
		}
		return nil, fmt.Errorf("file store: read index: %w", err)
	}
	var index projectIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("file store: parse index: %w", err)
	}
	if index.Projects == nil {
		index.Projects = []domain.Project{}
	}
	return &index, nil
}

func (s *Store) writeIndex(index *projectIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal index: %w", err)
	}
	return writeAtomic(s.indexPath(), data)
}

func (s *Store) writeProjectMetadata(project domain.Project) error {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal metadata: %w", err)
	}
	return writeAtomic(filepath.Join(s.projectDir(project.ID), metadataFile), data)
}

// writeAtomic writes via a temp file in the target directory, fsyncs and
// renames into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// uniqueSlug derives a filesystem-safe id from a display name, suffixing
// numerically until it is free.
func uniqueSlug(value, fallback string, taken map[string]bool) string {
	base := slugify(value)
	if base == "" {
		base = fallback
	}
	candidate := base
	for n := 2; taken[candidate]; n++ {
		candidate = base + "_" + strconv.Itoa(n)
	}
	taken[candidate] = true
	return candidate
}

func slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || unicode.IsDigit(r) || r == '-' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
