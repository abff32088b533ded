package filtergraph

import (
	"math"

	"montage/models"
)

// CrossfadeOffsets returns the start time of each cross-fade in a left
// fold over segments of the given durations.
//
// The fade into segment i starts transition seconds before the natural
// boundary between segments i-1 and i, never before zero. The result has
// one entry per segment after the first.
func CrossfadeOffsets(durations []float64, transition float64) []float64 {
	if len(durations) < 2 {
		return nil
	}
	offsets := make([]float64, 0, len(durations)-1)
	cumulative := 0.0
	for i := 1; i < len(durations); i++ {
		cumulative += durations[i-1]
		offsets = append(offsets, math.Max(0, cumulative-transition))
	}
	return offsets
}

// lane describes the stream-specific filters used to join one lane.
type lane struct {
	concatRole    Role
	crossfadeRole Role
	concatFilter  func(n int) Filter
	fadeFilter    func(transition float64) Filter

	// align, when set, cuts or pads the running stream to end seconds
	// before each cross-fade so the overlap starts at the lane offset.
	alignRole Role
	align     func(end float64) []Filter
}

var videoLane = lane{
	concatRole:    RoleVideoConcat,
	crossfadeRole: RoleVideoCrossfade,
	concatFilter: func(n int) Filter {
		return NewFilter("concat").WithNum("n", float64(n)).With("v", "1").With("a", "0")
	},
	fadeFilter: func(transition float64) Filter {
		return NewFilter("xfade").With("transition", "fade").WithNum("duration", transition)
	},
}

var audioLane = lane{
	concatRole:    RoleAudioConcat,
	crossfadeRole: RoleAudioCrossfade,
	concatFilter: func(n int) Filter {
		return NewFilter("concat").WithNum("n", float64(n)).With("v", "0").With("a", "1")
	},
	fadeFilter: func(transition float64) Filter {
		return NewFilter("acrossfade").WithNum("d", transition)
	},
	alignRole: RoleAudioAlign,
	align: func(end float64) []Filter {
		return []Filter{NewFilter("apad"), trimFilter("atrim", end)}
	},
}

// join merges labels into one using mode. A single label is returned as is.
func (b *builder) join(l lane, labels []NodeID, mode models.JoinMode, offsets []float64) (NodeID, error) {
	if len(labels) == 0 {
		return NodeID{}, &models.CompilationError{Reason: "nothing to join"}
	}
	if len(labels) == 1 {
		return labels[0], nil
	}

	if mode == models.JoinConcat {
		id, err := b.ids.Next(l.concatRole)
		if err != nil {
			return NodeID{}, err
		}
		inputs := make([]Pad, len(labels))
		for i, label := range labels {
			inputs[i] = NodePad(label)
		}
		b.emit(Node{ID: id, Inputs: inputs, Filters: []Filter{l.concatFilter(len(labels))}})
		return id, nil
	}

	if len(offsets) != len(labels)-1 {
		return NodeID{}, &models.CompilationError{Reason: "cross-fade offsets do not match lane length"}
	}

	current := labels[0]
	for i := 1; i < len(labels); i++ {
		offset := offsets[i-1]
		fade := l.fadeFilter(b.transition)

		if l.align != nil {
			alignID, err := b.ids.Next(l.alignRole)
			if err != nil {
				return NodeID{}, err
			}
			b.emit(Node{
				ID:      alignID,
				Inputs:  []Pad{NodePad(current)},
				Filters: l.align(offset + b.transition),
			})
			current = alignID
		} else {
			fade = fade.WithNum("offset", offset)
		}

		id, err := b.ids.Next(l.crossfadeRole)
		if err != nil {
			return NodeID{}, err
		}
		b.emit(Node{
			ID:      id,
			Inputs:  []Pad{NodePad(current), NodePad(labels[i])},
			Filters: []Filter{fade},
			Offset:  offset,
		})
		current = id
	}
	return current, nil
}
