// Package filtergraph compiles a timeline into a DAG of labeled ffmpeg
// filter nodes and renders it as a -filter_complex description.
package filtergraph

import (
	"fmt"
	"strings"

	"montage/internal/timeutil"
	"montage/models"
)

// Role is the kind of node in the compiled graph.
type Role int

const (
	RoleSegmentVideo Role = iota + 1
	RoleSegmentAudio
	RoleSegmentSilence
	RoleAudioItem
	RoleVideoCrossfade
	RoleVideoConcat
	RoleAudioCrossfade
	RoleAudioConcat
	RoleSilence
	RoleVideoOut
	RoleAudioAlign
)

var rolePrefixes = map[Role]string{
	RoleSegmentVideo:   "v",
	RoleSegmentAudio:   "a",
	RoleSegmentSilence: "asil",
	RoleAudioItem:      "aseq",
	RoleVideoCrossfade: "xv",
	RoleVideoConcat:    "vcat",
	RoleAudioCrossfade: "xa",
	RoleAudioConcat:    "acat",
	RoleSilence:        "silent",
	RoleVideoOut:       "vout",
	RoleAudioAlign:     "xal",
}

func (r Role) String() string {
	if p, ok := rolePrefixes[r]; ok {
		return p
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// NodeID identifies a node within one compiled graph.
type NodeID struct {
	Role Role
	Seq  int
}

// IsZero reports whether id was never assigned.
func (id NodeID) IsZero() bool { return id.Role == 0 }

// Label renders the identifier as used between brackets in the graph.
func (id NodeID) Label() string {
	if id.Role == RoleVideoOut {
		return "vout"
	}
	return fmt.Sprintf("%s%d", id.Role, id.Seq)
}

func (id NodeID) String() string { return id.Label() }

// idAllocator issues node identifiers for one Build call.
//
// Per-segment roles are numbered by segment index; every other role draws
// from its own increasing counter. Issuing the same identifier twice is a
// compilation error.
type idAllocator struct {
	next   map[Role]int
	issued map[NodeID]bool
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		next:   make(map[Role]int),
		issued: make(map[NodeID]bool),
	}
}

// Next issues the next identifier for role.
func (a *idAllocator) Next(role Role) (NodeID, error) {
	id := NodeID{Role: role, Seq: a.next[role]}
	return id, a.claim(id)
}

// At issues the identifier with an explicit sequence number.
func (a *idAllocator) At(role Role, seq int) (NodeID, error) {
	id := NodeID{Role: role, Seq: seq}
	return id, a.claim(id)
}

func (a *idAllocator) claim(id NodeID) error {
	if a.issued[id] {
		return &models.CompilationError{Reason: fmt.Sprintf("label %s issued twice", id.Label())}
	}
	a.issued[id] = true
	if id.Seq >= a.next[id.Role] {
		a.next[id.Role] = id.Seq + 1
	}
	return nil
}

// StreamType selects a stream of an input file.
type StreamType string

const (
	StreamVideo StreamType = "v"
	StreamAudio StreamType = "a"
)

// Pad is a node input: either a stream of an input file or another node.
type Pad struct {
	Node   NodeID
	Input  int
	Stream StreamType
}

// NodePad references the output of another node.
func NodePad(id NodeID) Pad { return Pad{Node: id} }

// InputPad references a stream of input index.
func InputPad(index int, stream StreamType) Pad {
	return Pad{Input: index, Stream: stream}
}

// IsInput reports whether the pad reads an input file stream.
func (p Pad) IsInput() bool { return p.Stream != "" }

func (p Pad) String() string {
	if p.IsInput() {
		return fmt.Sprintf("[%d:%s]", p.Input, p.Stream)
	}
	return "[" + p.Node.Label() + "]"
}

// Arg is a filter option. An empty Key renders the value positionally.
type Arg struct {
	Key   string
	Value string
}

// Filter is one ffmpeg filter with its options.
type Filter struct {
	Name string
	Args []Arg
}

// NewFilter creates a filter with no options.
func NewFilter(name string) Filter { return Filter{Name: name} }

// With appends a keyed option.
func (f Filter) With(key, value string) Filter {
	f.Args = append(append([]Arg(nil), f.Args...), Arg{Key: key, Value: value})
	return f
}

// WithNum appends a keyed numeric option in fixed decimal format.
func (f Filter) WithNum(key string, v float64) Filter {
	return f.With(key, timeutil.FormatDecimal(v))
}

// Pos appends positional option values.
func (f Filter) Pos(values ...string) Filter {
	args := append([]Arg(nil), f.Args...)
	for _, v := range values {
		args = append(args, Arg{Value: v})
	}
	f.Args = args
	return f
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		if a.Key == "" {
			parts[i] = a.Value
		} else {
			parts[i] = a.Key + "=" + a.Value
		}
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Node is one labeled chain of filters.
//
// Offset is the start time of a cross-fade node within the joined lane and
// zero for every other node.
type Node struct {
	ID      NodeID
	Inputs  []Pad
	Filters []Filter
	Offset  float64
}

func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString(in.String())
	}
	for i, f := range n.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	b.WriteString("[" + n.ID.Label() + "]")
	return b.String()
}
