package filtergraph

import (
	"fmt"
	"strings"

	"montage/internal/timeutil"
	"montage/models"
)

// InputKind describes how an input is bound on the ffmpeg command line.
type InputKind int

const (
	// InputFile is a media file decoded as-is.
	InputFile InputKind = iota
	// InputLoopedImage is a still image looped for Duration seconds.
	InputLoopedImage
	// InputLavfi is a synthetic lavfi source of Duration seconds.
	InputLavfi
)

// Input is one engine input. Index is its zero-based position on the
// command line, which is also how filter pads refer to it.
type Input struct {
	Index    int
	Path     string
	Kind     InputKind
	Duration float64
}

// Args returns the command-line arguments binding the input.
func (in Input) Args() []string {
	switch in.Kind {
	case InputLoopedImage:
		return []string{"-loop", "1", "-t", timeutil.FormatDecimal(in.Duration), "-i", in.Path}
	case InputLavfi:
		return []string{"-f", "lavfi", "-t", timeutil.FormatDecimal(in.Duration), "-i", in.Path}
	default:
		return []string{"-i", in.Path}
	}
}

// Graph is a compiled filter graph with its input bindings.
//
// Nodes are in emission order: every node appears after the nodes it reads.
type Graph struct {
	Inputs   []Input
	Nodes    []Node
	VideoOut NodeID
	AudioOut NodeID
	HasAudio bool

	// Duration is the composed length of the joined video lane in seconds.
	Duration float64
}

// FilterComplex renders the graph as a single -filter_complex value.
func (g *Graph) FilterComplex() string {
	chains := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		chains[i] = n.String()
	}
	return strings.Join(chains, ";")
}

// InputArgs returns the bindings of all inputs in index order.
func (g *Graph) InputArgs() []string {
	var args []string
	for _, in := range g.Inputs {
		args = append(args, in.Args()...)
	}
	return args
}

// Node returns the node with the given identifier.
func (g *Graph) Node(id NodeID) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesByRole returns nodes of the given role in emission order.
func (g *Graph) NodesByRole(role Role) []Node {
	var nodes []Node
	for _, n := range g.Nodes {
		if n.ID.Role == role {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Validate checks the structural invariants of the graph.
//
// A failure here is a defect in the builder, reported as a
// *models.CompilationError.
func (g *Graph) Validate() error {
	if g.VideoOut.IsZero() {
		return &models.CompilationError{Reason: "graph has no video output"}
	}
	if g.HasAudio && g.AudioOut.IsZero() {
		return &models.CompilationError{Reason: "graph has audio but no audio output"}
	}

	for i, in := range g.Inputs {
		if in.Index != i {
			return &models.CompilationError{Reason: fmt.Sprintf("input %d bound at index %d", in.Index, i)}
		}
	}

	seen := make(map[NodeID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			return &models.CompilationError{Reason: fmt.Sprintf("duplicate label %s", n.ID.Label())}
		}
		for _, pad := range n.Inputs {
			if pad.IsInput() {
				if pad.Input < 0 || pad.Input >= len(g.Inputs) {
					return &models.CompilationError{Reason: fmt.Sprintf("%s reads unbound input %d", n.ID.Label(), pad.Input)}
				}
				continue
			}
			if !seen[pad.Node] {
				return &models.CompilationError{Reason: fmt.Sprintf("%s reads undefined label %s", n.ID.Label(), pad.Node.Label())}
			}
		}
		seen[n.ID] = true
	}

	if !seen[g.VideoOut] {
		return &models.CompilationError{Reason: fmt.Sprintf("video output %s not emitted", g.VideoOut.Label())}
	}
	if g.HasAudio && !seen[g.AudioOut] {
		return &models.CompilationError{Reason: fmt.Sprintf("audio output %s not emitted", g.AudioOut.Label())}
	}
	return nil
}
