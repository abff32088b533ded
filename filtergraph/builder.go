package filtergraph

import (
	"fmt"
	"math"
	"strconv"

	"montage/internal/timeutil"
	"montage/models"
)

// Audio normalisation shared by every audio node.
const (
	SampleRate    = 48000
	ChannelLayout = "stereo"
)

// SilenceSource is the lavfi source bound for the silence fallback.
var SilenceSource = fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", ChannelLayout, SampleRate)

type builder struct {
	tl         *models.Timeline
	ids        *idAllocator
	graph      *Graph
	transition float64
	durations  []float64
	offsets    []float64
}

// Build compiles a timeline into a filter graph.
//
// The timeline must be normalised and every duration resolved: segment
// durations and audio item durations are used as given. The timeline is
// not modified.
func Build(tl *models.Timeline) (*Graph, error) {
	if len(tl.Items) == 0 {
		return nil, models.NewValidationError("items", models.ErrEmptyTimeline)
	}

	b := &builder{
		tl:         tl,
		ids:        newIDAllocator(),
		graph:      &Graph{},
		transition: tl.TransitionSeconds,
		durations:  tl.SegmentDurations(),
	}

	for i, d := range b.durations {
		if d <= 0 {
			return nil, &models.CompilationError{Reason: fmt.Sprintf("segment %d has unresolved duration", i)}
		}
	}

	if tl.Transition != models.JoinConcat {
		b.offsets = CrossfadeOffsets(b.durations, b.transition)
	}
	b.graph.Duration = models.ComposedDuration(b.durations, tl.Transition, b.transition)

	if err := b.buildVideo(); err != nil {
		return nil, err
	}
	if err := b.buildAudio(); err != nil {
		return nil, err
	}

	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

func (b *builder) emit(n Node) {
	b.graph.Nodes = append(b.graph.Nodes, n)
}

func (b *builder) bind(path string, kind InputKind, duration float64) int {
	index := len(b.graph.Inputs)
	b.graph.Inputs = append(b.graph.Inputs, Input{Index: index, Path: path, Kind: kind, Duration: duration})
	return index
}

func (b *builder) buildVideo() error {
	w := strconv.Itoa(b.tl.Width)
	h := strconv.Itoa(b.tl.Height)
	fps := strconv.Itoa(b.tl.Fps)

	labels := make([]NodeID, len(b.tl.Items))
	for i, item := range b.tl.Items {
		d := b.durations[i]
		kind := InputFile
		if item.Kind == models.MediaImage {
			kind = InputLoopedImage
		}
		index := b.bind(item.Path, kind, d)

		id, err := b.ids.At(RoleSegmentVideo, i)
		if err != nil {
			return err
		}
		b.emit(Node{
			ID:     id,
			Inputs: []Pad{InputPad(index, StreamVideo)},
			Filters: []Filter{
				trimFilter("trim", d),
				NewFilter("setpts").Pos("PTS-STARTPTS"),
				NewFilter("scale").Pos(w, h).With("force_original_aspect_ratio", "increase"),
				NewFilter("crop").Pos(w, h),
				NewFilter("fps").Pos(fps),
				NewFilter("format").Pos("yuv420p"),
			},
		})
		labels[i] = id
	}

	joined, err := b.join(videoLane, labels, b.tl.Transition, b.offsets)
	if err != nil {
		return err
	}

	out, err := b.ids.Next(RoleVideoOut)
	if err != nil {
		return err
	}
	b.emit(Node{
		ID:     out,
		Inputs: []Pad{NodePad(joined)},
		Filters: []Filter{
			NewFilter("fps").Pos(fps),
			NewFilter("format").Pos("yuv420p"),
			NewFilter("setsar").Pos("1"),
		},
	})
	b.graph.VideoOut = out
	return nil
}

func (b *builder) buildAudio() error {
	var (
		out NodeID
		err error
	)
	switch {
	case b.tl.UseVideoAudio:
		out, err = b.trackAudio()
	case len(b.tl.EffectiveAudioItems()) > 0:
		out, err = b.audioItems(b.tl.EffectiveAudioItems())
	default:
		out, err = b.silence()
	}
	if err != nil {
		return err
	}
	b.graph.AudioOut = out
	b.graph.HasAudio = true
	return nil
}

// trackAudio takes each segment's own audio, substituting silence for
// segments without an audio stream, and joins it like the video lane.
func (b *builder) trackAudio() (NodeID, error) {
	labels := make([]NodeID, len(b.tl.Items))
	for i, item := range b.tl.Items {
		d := b.durations[i]
		if item.Kind == models.MediaVideo && item.HasAudio {
			id, err := b.ids.At(RoleSegmentAudio, i)
			if err != nil {
				return NodeID{}, err
			}
			b.emit(Node{
				ID:      id,
				Inputs:  []Pad{InputPad(i, StreamAudio)},
				Filters: audioChain(d),
			})
			labels[i] = id
			continue
		}

		id, err := b.ids.At(RoleSegmentSilence, i)
		if err != nil {
			return NodeID{}, err
		}
		source := NewFilter("anullsrc").With("r", strconv.Itoa(SampleRate)).With("cl", ChannelLayout)
		b.emit(Node{
			ID:      id,
			Filters: append([]Filter{source}, audioChain(d)...),
		})
		labels[i] = id
	}
	return b.join(audioLane, labels, b.tl.Transition, b.offsets)
}

// audioItems binds each item after the segment inputs, fades its edges
// and concatenates the items in list order.
func (b *builder) audioItems(items []models.AudioItem) (NodeID, error) {
	labels := make([]NodeID, len(items))
	for k, item := range items {
		d := math.Max(models.MinSegmentSeconds, item.DurationSeconds)
		index := b.bind(item.Path, InputFile, d)

		id, err := b.ids.Next(RoleAudioItem)
		if err != nil {
			return NodeID{}, err
		}
		fade := math.Min(b.transition, d/2)
		filters := append(audioChain(d),
			NewFilter("afade").With("t", "in").With("st", "0").WithNum("d", fade),
			NewFilter("afade").With("t", "out").WithNum("st", d-fade).WithNum("d", fade),
		)
		b.emit(Node{ID: id, Inputs: []Pad{InputPad(index, StreamAudio)}, Filters: filters})
		labels[k] = id
	}
	return b.join(audioLane, labels, models.JoinConcat, nil)
}

// silence binds one synthetic silent source covering the composed lane.
func (b *builder) silence() (NodeID, error) {
	d := math.Max(models.MinSegmentSeconds, b.graph.Duration)
	index := b.bind(SilenceSource, InputLavfi, d)

	id, err := b.ids.Next(RoleSilence)
	if err != nil {
		return NodeID{}, err
	}
	b.emit(Node{ID: id, Inputs: []Pad{InputPad(index, StreamAudio)}, Filters: audioChain(d)})
	return id, nil
}

func trimFilter(name string, d float64) Filter {
	return NewFilter(name).Pos("0", timeutil.FormatDecimal(d))
}

func audioChain(d float64) []Filter {
	return []Filter{
		trimFilter("atrim", d),
		NewFilter("asetpts").Pos("PTS-STARTPTS"),
		NewFilter("aformat").
			With("sample_fmts", "fltp").
			With("sample_rates", strconv.Itoa(SampleRate)).
			With("channel_layouts", ChannelLayout),
	}
}
