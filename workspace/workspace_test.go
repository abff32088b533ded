package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"montage/models"
)

func TestNew(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Error("Expected error for empty root")
	}

	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ws.Root() != root {
		t.Errorf("Expected root %s, got %s", root, ws.Root())
	}
}

func TestLayout(t *testing.T) {
	root := t.TempDir()
	ws, _ := New(root)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"queue", ws.QueueDir(), filepath.Join(root, "TrackManager", "Queue")},
		{"processed", ws.ProcessedDir(), filepath.Join(root, "TrackManager", "Processed")},
		{"collage projects", ws.ProjectsDir(models.ProjectVideoCollage), filepath.Join(root, "TrackManager", "Projects", "VideoCollage")},
		{"slideshow projects", ws.ProjectsDir(models.ProjectSlideShow), filepath.Join(root, "TrackManager", "Projects", "SlideShow")},
		{"unknown type", ws.ProjectsDir("Other"), filepath.Join(root, "TrackManager", "Projects", "VideoCollage")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	ws, _ := New(t.TempDir())
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	for _, dir := range []string{ws.QueueDir(), ws.ProcessedDir(), ws.ProjectsDir(models.ProjectSlideShow)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"holiday", true},
		{"Отпуск 2024", true},
		{"clip.final", true},
		{"", false},
		{"   ", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"what?", false},
		{"a:b", false},
		{"tab\tname", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tt.name, err)
			}
			if !tt.valid {
				if !errors.Is(err, models.ErrInvalidName) || !models.IsValidationError(err) {
					t.Errorf("Expected ValidationError wrapping ErrInvalidName for %q, got %v", tt.name, err)
				}
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	ws, _ := New(t.TempDir())

	path, err := ws.OutputPath("result", ".MKV")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	expected := filepath.Join(ws.ProcessedDir(), "result.mkv")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}

	path, err = ws.OutputPath("result", "")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Errorf("Expected default mp4 extension, got %s", path)
	}
}

// An existing output is rejected, never overwritten.
func TestOutputPath_Exists(t *testing.T) {
	ws, _ := New(t.TempDir())
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	existing := filepath.Join(ws.ProcessedDir(), "taken.mp4")
	if err := os.WriteFile(existing, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := ws.OutputPath("taken", "mp4")
	if !errors.Is(err, models.ErrOutputExists) || !models.IsValidationError(err) {
		t.Errorf("Expected ValidationError wrapping ErrOutputExists, got %v", err)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "data" {
		t.Error("Existing output was modified")
	}
}

func TestOutputPath_InvalidName(t *testing.T) {
	ws, _ := New(t.TempDir())
	if _, err := ws.OutputPath("bad/name", "mp4"); !errors.Is(err, models.ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}

func TestSaveAndLoadProject(t *testing.T) {
	ws, _ := New(t.TempDir())

	tl := models.NewTimeline("trip", models.ProjectSlideShow)
	tl.AddImage("a.png", 4).AddAudio("song.mp3", 0)
	tl.UseVideoAudio = false

	path, err := ws.SaveProject(tl)
	if err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	if path != filepath.Join(ws.ProjectsDir(models.ProjectSlideShow), "trip.json") {
		t.Errorf("Unexpected project path %s", path)
	}

	loaded, err := ws.LoadProject(models.ProjectSlideShow, "trip")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if loaded.Name != "trip" || loaded.Type != models.ProjectSlideShow {
		t.Errorf("Unexpected project %s/%s", loaded.Name, loaded.Type)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].DurationSeconds != 4 {
		t.Errorf("Unexpected items %+v", loaded.Items)
	}
	if len(loaded.AudioItems) != 1 || loaded.AudioItems[0].Path != "song.mp3" {
		t.Errorf("Unexpected audio items %+v", loaded.AudioItems)
	}
	if loaded.UseVideoAudio {
		t.Error("Expected UseVideoAudio to round-trip as false")
	}
}

func TestLoadTimeline_NameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beach.json")
	if err := os.WriteFile(path, []byte(`{"type":"VideoCollage","items":[{"path":"a.mp4","kind":"video"}]}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tl, err := LoadTimeline(path)
	if err != nil {
		t.Fatalf("LoadTimeline failed: %v", err)
	}
	if tl.Name != "beach" {
		t.Errorf("Expected name from file, got %s", tl.Name)
	}
	if len(tl.Items) != 1 || tl.Items[0].Kind != models.MediaVideo {
		t.Errorf("Unexpected items %+v", tl.Items)
	}
}

func TestLoadTimeline_ClipAudioDefault(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected bool
	}{
		{"key omitted", `{"name":"p","items":[{"path":"a.mp4","kind":"video"}]}`, true},
		{"explicit true", `{"name":"p","use_video_audio":true,"items":[{"path":"a.mp4","kind":"video"}]}`, true},
		{"explicit false", `{"name":"p","use_video_audio":false,"items":[{"path":"a.mp4","kind":"video"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.json")
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			tl, err := LoadTimeline(path)
			if err != nil {
				t.Fatalf("LoadTimeline failed: %v", err)
			}
			if tl.UseVideoAudio != tt.expected {
				t.Errorf("Expected UseVideoAudio %v, got %v", tt.expected, tl.UseVideoAudio)
			}
		})
	}
}

func TestLoadTimeline_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTimeline(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadTimeline(bad); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
