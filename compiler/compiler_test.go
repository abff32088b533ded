package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"montage/command"
	"montage/filtergraph"
	"montage/models"
	"montage/workspace"
)

// fakeResolver answers from maps keyed by file base name and counts calls.
type fakeResolver struct {
	mu        sync.Mutex
	durations map[string]float64
	audio     map[string]bool
	calls     int
}

func (f *fakeResolver) ResolveDuration(ctx context.Context, path string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.durations[filepath.Base(path)]
}

func (f *fakeResolver) HasAudioStream(ctx context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.audio[filepath.Base(path)]
}

func (f *fakeResolver) TrimmedDuration(ctx context.Context, path string, maxSeconds float64) float64 {
	d := f.ResolveDuration(ctx, path)
	if d <= 0 {
		if maxSeconds > 1 {
			return maxSeconds
		}
		return 1
	}
	if maxSeconds > 0 && d > maxSeconds {
		return maxSeconds
	}
	return d
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	dir      string
	ws       *workspace.Workspace
	resolver *fakeResolver
	compiler *Compiler
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("media"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	ws, err := workspace.New(filepath.Join(dir, "root"))
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}
	resolver := &fakeResolver{durations: map[string]float64{}, audio: map[string]bool{}}
	return &fixture{
		dir:      dir,
		ws:       ws,
		resolver: resolver,
		compiler: New(resolver, ws, 4, zerolog.Nop()),
	}
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func TestCompile_SingleVideo(t *testing.T) {
	f := newFixture(t, "clip.mp4")
	f.resolver.durations["clip.mp4"] = 12.5
	f.resolver.audio["clip.mp4"] = true

	tl := models.NewTimeline("single", models.ProjectVideoCollage).AddVideo(f.path("clip.mp4"))

	res, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := res.Timeline.Items[0].DurationSeconds; got != 12.5 {
		t.Errorf("Expected resolved duration 12.5, got %v", got)
	}
	if n := len(res.Graph.NodesByRole(filtergraph.RoleVideoCrossfade)); n != 0 {
		t.Errorf("Expected no cross-fade nodes, got %d", n)
	}
	if res.Graph.AudioOut.Label() != "a0" {
		t.Errorf("Expected the clip's own audio a0, got %s", res.Graph.AudioOut)
	}

	wantOut := filepath.Join(f.ws.ProcessedDir(), "single.mp4")
	if res.Plan.OutputPath != wantOut {
		t.Errorf("Expected output %s, got %s", wantOut, res.Plan.OutputPath)
	}
	if len(res.Plan.Invocations) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(res.Plan.Invocations))
	}
	args := res.Plan.Invocations[0].Args
	if args[len(args)-1] != wantOut {
		t.Errorf("Expected output path last, got %s", args[len(args)-1])
	}
	if res.Plan.Duration != 12.5 {
		t.Errorf("Expected plan duration 12.5, got %v", res.Plan.Duration)
	}
}

func TestCompile_CrossfadeSlideshow(t *testing.T) {
	f := newFixture(t, "a.png", "b.png", "c.png")

	tl := models.NewTimeline("slides", models.ProjectSlideShow)
	tl.UseVideoAudio = false
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		tl.AddImage(f.path(name), 3)
	}

	res, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if res.Graph.Duration != 7 {
		t.Errorf("Expected composed duration 7, got %v", res.Graph.Duration)
	}
	fades := res.Graph.NodesByRole(filtergraph.RoleVideoCrossfade)
	if len(fades) != 2 {
		t.Fatalf("Expected 2 cross-fades, got %d", len(fades))
	}
	if fades[0].Offset != 2 || fades[1].Offset != 5 {
		t.Errorf("Expected offsets 2 and 5, got %v and %v", fades[0].Offset, fades[1].Offset)
	}
	if f.resolver.callCount() != 0 {
		t.Errorf("Images should not be probed, got %d calls", f.resolver.callCount())
	}
}

func TestCompile_TrackAudioMissingStream(t *testing.T) {
	f := newFixture(t, "a.mp4", "b.mp4")
	f.resolver.durations["a.mp4"] = 4
	f.resolver.durations["b.mp4"] = 6.25
	f.resolver.audio["a.mp4"] = true

	tl := models.NewTimeline("collage", models.ProjectVideoCollage).
		AddVideo(f.path("a.mp4")).AddVideo(f.path("b.mp4"))

	res, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	sil, ok := res.Graph.Node(filtergraph.NodeID{Role: filtergraph.RoleSegmentSilence, Seq: 1})
	if !ok {
		t.Fatal("Expected a silence node for the clip without audio")
	}
	if !strings.Contains(sil.String(), "atrim=0:6.25") {
		t.Errorf("Expected silence of exactly 6.25s, got %s", sil)
	}
	if res.Timeline.Items[1].HasAudio {
		t.Error("Expected second clip to have no audio")
	}
}

func TestCompile_AudioItems(t *testing.T) {
	f := newFixture(t, "a.png", "song.mp3", "outro.mp3")
	f.resolver.durations["song.mp3"] = 0
	f.resolver.durations["outro.mp3"] = 42

	tl := models.NewTimeline("music", models.ProjectSlideShow)
	tl.UseVideoAudio = false
	tl.AddImage(f.path("a.png"), 5).
		AddAudio(f.path("song.mp3"), 0).
		AddAudio(f.path("outro.mp3"), 0)

	res, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	items := res.Timeline.AudioItems
	if len(items) != 2 {
		t.Fatalf("Expected 2 audio items, got %d", len(items))
	}
	if items[0].DurationSeconds != 1 {
		t.Errorf("Expected unknown duration to fall back to 1, got %v", items[0].DurationSeconds)
	}
	if items[1].DurationSeconds != 42 {
		t.Errorf("Expected probed duration 42, got %v", items[1].DurationSeconds)
	}
	if n := len(res.Graph.NodesByRole(filtergraph.RoleAudioItem)); n != 2 {
		t.Errorf("Expected 2 audio item nodes, got %d", n)
	}
}

func TestCompile_LegacyAudioPath(t *testing.T) {
	f := newFixture(t, "a.png", "song.mp3")

	tl := models.NewTimeline("legacy", models.ProjectSlideShow)
	tl.UseVideoAudio = false
	tl.AudioPath = f.path("song.mp3")
	tl.AudioDurationSeconds = 0.2
	tl.AddImage(f.path("a.png"), 3)

	res, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if len(res.Timeline.AudioItems) != 1 {
		t.Fatalf("Expected legacy audio folded into 1 item, got %d", len(res.Timeline.AudioItems))
	}
	if got := res.Timeline.AudioItems[0].DurationSeconds; got != models.MinSegmentSeconds {
		t.Errorf("Expected duration raised to %v, got %v", models.MinSegmentSeconds, got)
	}
	if f.resolver.callCount() != 0 {
		t.Errorf("Explicit duration should not be probed, got %d calls", f.resolver.callCount())
	}
}

func TestCompile_DoesNotMutateTimeline(t *testing.T) {
	f := newFixture(t, "a.mp4", "b.png")
	f.resolver.durations["a.mp4"] = 8
	f.resolver.audio["a.mp4"] = true

	tl := models.NewTimeline("keep", models.ProjectVideoCollage).
		AddVideo(f.path("a.mp4")).AddImage(f.path("b.png"), 0)
	tl.Width = 1281
	before := tl.Clone()

	if _, err := f.compiler.Compile(context.Background(), tl, Options{}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if !reflect.DeepEqual(tl, before) {
		t.Errorf("Timeline was modified:\n got: %+v\nwant: %+v", tl, before)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	f := newFixture(t, "a.mp4", "b.mp4", "c.png", "d.mp4")
	f.resolver.durations["a.mp4"] = 4
	f.resolver.durations["b.mp4"] = 3.333
	f.resolver.durations["d.mp4"] = 10
	f.resolver.audio["b.mp4"] = true

	tl := models.NewTimeline("same", models.ProjectVideoCollage).
		AddVideo(f.path("a.mp4")).AddVideo(f.path("b.mp4")).
		AddImage(f.path("c.png"), 2).AddVideo(f.path("d.mp4"))
	tl.MaxClipDurationSeconds = 6

	first, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := f.compiler.Compile(context.Background(), tl, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if !reflect.DeepEqual(first.Plan.Invocations, second.Plan.Invocations) {
		t.Errorf("Expected identical invocations:\n%s\n%s", first.Plan, second.Plan)
	}
	if got := first.Timeline.Items[3].DurationSeconds; got != 6 {
		t.Errorf("Expected clip capped at 6, got %v", got)
	}
}

func TestCompile_TwoPass(t *testing.T) {
	f := newFixture(t, "a.png")

	tl := models.NewTimeline("passes", models.ProjectSlideShow).AddImage(f.path("a.png"), 2)

	res, err := f.compiler.Compile(context.Background(), tl, Options{TwoPassBitrate: "2M", Fast: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if len(res.Plan.Invocations) != 2 {
		t.Fatalf("Expected 2 invocations, got %d", len(res.Plan.Invocations))
	}
	if res.Plan.Invocations[0].Name != command.InvocationPass1 || res.Plan.Invocations[1].Name != command.InvocationPass2 {
		t.Errorf("Unexpected invocation names: %s, %s", res.Plan.Invocations[0].Name, res.Plan.Invocations[1].Name)
	}
	joined := strings.Join(res.Plan.Invocations[1].Args, " ")
	for _, want := range []string{"-b:v 2M", "-preset ultrafast", "-pass 2"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in pass 2 args: %s", want, joined)
		}
	}
}

func TestCompile_EncodingOverrides(t *testing.T) {
	f := newFixture(t, "a.png")
	f.compiler.SetEncoding(command.EncodingOverrides{Preset: "slow", CRF: 18})

	tl := models.NewTimeline("quality", models.ProjectSlideShow).AddImage(f.path("a.png"), 2)

	res, err := f.compiler.Compile(context.Background(), tl, Options{Name: "custom-name"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	joined := strings.Join(res.Plan.Invocations[0].Args, " ")
	for _, want := range []string{"-preset slow", "-crf 18"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in args: %s", want, joined)
		}
	}
	if filepath.Base(res.Plan.OutputPath) != "custom-name.mp4" {
		t.Errorf("Expected custom-name.mp4, got %s", res.Plan.OutputPath)
	}
}

func TestCompile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		timeline func(f *fixture) *models.Timeline
		want     error
	}{
		{
			name: "empty timeline",
			timeline: func(f *fixture) *models.Timeline {
				return models.NewTimeline("empty", models.ProjectVideoCollage)
			},
			want: models.ErrEmptyTimeline,
		},
		{
			name: "missing segment file",
			timeline: func(f *fixture) *models.Timeline {
				return models.NewTimeline("missing", models.ProjectVideoCollage).AddVideo(f.path("nope.mp4"))
			},
			want: models.ErrMissingFile,
		},
		{
			name: "missing audio file",
			timeline: func(f *fixture) *models.Timeline {
				tl := models.NewTimeline("noaudio", models.ProjectSlideShow).
					AddImage(f.path("a.png"), 2).AddAudio(f.path("gone.mp3"), 0)
				tl.UseVideoAudio = false
				return tl
			},
			want: models.ErrMissingFile,
		},
		{
			name: "invalid name",
			timeline: func(f *fixture) *models.Timeline {
				return models.NewTimeline("bad/name", models.ProjectSlideShow).AddImage(f.path("a.png"), 2)
			},
			want: models.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "a.png")

			res, err := f.compiler.Compile(context.Background(), tt.timeline(f), Options{})
			if res != nil {
				t.Error("Expected no result")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !models.IsValidationError(err) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
			if f.resolver.callCount() != 0 {
				t.Errorf("Expected no probes before validation passes, got %d", f.resolver.callCount())
			}
		})
	}
}

func TestCompile_OutputExists(t *testing.T) {
	f := newFixture(t, "a.mp4")
	f.resolver.durations["a.mp4"] = 5
	if err := f.ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	existing := filepath.Join(f.ws.ProcessedDir(), "taken.mp4")
	if err := os.WriteFile(existing, []byte("keep"), 0644); err != nil {
		t.Fatalf("Failed to create output: %v", err)
	}

	tl := models.NewTimeline("taken", models.ProjectVideoCollage).AddVideo(f.path("a.mp4"))

	_, err := f.compiler.Compile(context.Background(), tl, Options{})
	if !errors.Is(err, models.ErrOutputExists) {
		t.Errorf("Expected ErrOutputExists, got %v", err)
	}
	if f.resolver.callCount() != 0 {
		t.Errorf("Expected no probes, got %d", f.resolver.callCount())
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "keep" {
		t.Errorf("Existing output was modified: %q", data)
	}
}

func TestCompile_Cancelled(t *testing.T) {
	f := newFixture(t, "a.mp4")
	f.resolver.durations["a.mp4"] = 5

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tl := models.NewTimeline("cancel", models.ProjectVideoCollage).AddVideo(f.path("a.mp4"))
	_, err := f.compiler.Compile(ctx, tl, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCompileClip(t *testing.T) {
	f := newFixture(t, "in.mov")
	f.resolver.durations["in.mov"] = 20

	plan, err := f.compiler.CompileClip(context.Background(), ClipOptions{
		Input:  f.path("in.mov"),
		Name:   "short",
		Format: "WEBM",
		Start:  2,
		End:    8,
		VP9CRF: 30,
	})
	if err != nil {
		t.Fatalf("CompileClip failed: %v", err)
	}

	if plan.Type != command.TaskTypeClip {
		t.Errorf("Expected clip plan, got %s", plan.Type)
	}
	if filepath.Base(plan.OutputPath) != "short.webm" {
		t.Errorf("Expected short.webm, got %s", plan.OutputPath)
	}
	if plan.Duration != 6 {
		t.Errorf("Expected duration 6, got %v", plan.Duration)
	}
	joined := strings.Join(plan.Invocations[0].Args, " ")
	if !strings.Contains(joined, "-c:v libvpx-vp9 -crf 30 -b:v 0") {
		t.Errorf("Expected VP9 arguments, got %s", joined)
	}
}

func TestCompileClip_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts func(f *fixture) ClipOptions
		want error
	}{
		{
			name: "missing input",
			opts: func(f *fixture) ClipOptions {
				return ClipOptions{Input: f.path("none.mov"), Name: "x", Start: -1, End: -1, VP9CRF: -1}
			},
			want: models.ErrMissingFile,
		},
		{
			name: "invalid name",
			opts: func(f *fixture) ClipOptions {
				return ClipOptions{Input: f.path("in.mov"), Name: "a:b", Start: -1, End: -1, VP9CRF: -1}
			},
			want: models.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "in.mov")
			_, err := f.compiler.CompileClip(context.Background(), tt.opts(f))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("bad trim", func(t *testing.T) {
		f := newFixture(t, "in.mov")
		_, err := f.compiler.CompileClip(context.Background(), ClipOptions{
			Input: f.path("in.mov"), Name: "x", Start: 5, End: 2, VP9CRF: -1,
		})
		if !models.IsValidationError(err) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
		if f.resolver.callCount() != 0 {
			t.Errorf("Expected no probes, got %d", f.resolver.callCount())
		}
	})
}

func TestCompileCustom(t *testing.T) {
	f := newFixture(t, "in file.mov")

	plan, err := f.compiler.CompileCustom(CustomOptions{
		Input:    f.path("in file.mov"),
		Name:     "gif",
		Format:   "gif",
		Template: "-i {input} -vf 'fps=10,scale=320:-1' {output}",
	})
	if err != nil {
		t.Fatalf("CompileCustom failed: %v", err)
	}

	if !plan.Verbatim {
		t.Error("Expected verbatim plan")
	}
	want := []string{"-i", f.path("in file.mov"), "-vf", "fps=10,scale=320:-1", filepath.Join(f.ws.ProcessedDir(), "gif.gif")}
	if !reflect.DeepEqual(plan.Invocations[0].Args, want) {
		t.Errorf("Expected %v, got %v", want, plan.Invocations[0].Args)
	}

	if _, err := f.compiler.CompileCustom(CustomOptions{Input: f.path("in file.mov"), Name: "x"}); !models.IsValidationError(err) {
		t.Errorf("Expected ValidationError for empty template, got %v", err)
	}
}
