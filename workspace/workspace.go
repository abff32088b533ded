// Package workspace maps projects and outputs onto the on-disk layout
// rooted at the configured directory:
//
//	<root>/TrackManager/Queue
//	<root>/TrackManager/Processed
//	<root>/TrackManager/Projects/VideoCollage
//	<root>/TrackManager/Projects/SlideShow
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"montage/models"
)

const (
	managerDir   = "TrackManager"
	queueDir     = "Queue"
	processedDir = "Processed"
	projectsDir  = "Projects"
	projectExt   = ".json"
)

// invalidNameChars are rejected in project and output names on every
// platform so workspaces stay portable.
const invalidNameChars = `<>:"/\|?*`

// Workspace is a root directory holding queue, processed outputs and
// persisted projects.
type Workspace struct {
	root string
}

// New creates a workspace rooted at root.
func New(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// QueueDir returns the directory of files waiting to be processed.
func (w *Workspace) QueueDir() string {
	return filepath.Join(w.root, managerDir, queueDir)
}

// ProcessedDir returns the directory outputs are written to.
func (w *Workspace) ProcessedDir() string {
	return filepath.Join(w.root, managerDir, processedDir)
}

// ProjectsDir returns the directory holding projects of the given type.
func (w *Workspace) ProjectsDir(t models.ProjectType) string {
	folder := models.ProjectVideoCollage
	if t == models.ProjectSlideShow {
		folder = models.ProjectSlideShow
	}
	return filepath.Join(w.root, managerDir, projectsDir, string(folder))
}

// EnsureDirs creates the workspace layout.
func (w *Workspace) EnsureDirs() error {
	dirs := []string{
		w.QueueDir(),
		w.ProcessedDir(),
		w.ProjectsDir(models.ProjectVideoCollage),
		w.ProjectsDir(models.ProjectSlideShow),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ValidateName rejects empty names and names that are not usable as a file
// name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return models.NewValidationError("name", models.ErrInvalidName)
	}
	if name == "." || name == ".." {
		return models.NewValidationError("name", models.ErrInvalidName)
	}
	for _, r := range name {
		if r < 32 || strings.ContainsRune(invalidNameChars, r) {
			return models.NewValidationError("name", models.ErrInvalidName)
		}
	}
	return nil
}

// OutputPath returns Processed/<name>.<format>.
//
// The name must be valid and the file must not exist yet; an existing file
// is never overwritten.
func (w *Workspace) OutputPath(name, format string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = models.DefaultOutputFormat
	}

	path := filepath.Join(w.ProcessedDir(), name+"."+format)
	if _, err := os.Stat(path); err == nil {
		return "", models.NewValidationError("output", fmt.Errorf("%s: %w", path, models.ErrOutputExists))
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check output %s: %w", path, err)
	}
	return path, nil
}

// ProjectPath returns the JSON file of a named project.
func (w *Workspace) ProjectPath(t models.ProjectType, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(w.ProjectsDir(t), name+projectExt), nil
}

// LoadTimeline reads a persisted timeline.
func LoadTimeline(path string) (*models.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}

	// Files without use_video_audio keep the clips' own audio.
	tl := models.Timeline{UseVideoAudio: true}
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("failed to parse timeline %s: %w", path, err)
	}
	if tl.Name == "" {
		tl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &tl, nil
}

// SaveTimeline writes tl as indented JSON, creating parent directories.
func SaveTimeline(path string, tl *models.Timeline) error {
	data, err := json.MarshalIndent(tl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	return nil
}

// LoadProject reads a named project of the given type.
func (w *Workspace) LoadProject(t models.ProjectType, name string) (*models.Timeline, error) {
	path, err := w.ProjectPath(t, name)
	if err != nil {
		return nil, err
	}
	return LoadTimeline(path)
}

// SaveProject persists tl under its name and type.
func (w *Workspace) SaveProject(tl *models.Timeline) (string, error) {
	path, err := w.ProjectPath(tl.Type, tl.Name)
	if err != nil {
		return "", err
	}
	return path, SaveTimeline(path, tl)
}
