package genagent

import (
	"context"
	"io"
	"sync"
)

// StaticGenerator is a Generator that replays canned outputs in order,
// repeating the last one once exhausted. Useful for testing and development.
type StaticGenerator struct {
	mu      sync.Mutex
	outputs []string
	next    int
}

// NewStaticGenerator creates a StaticGenerator over the given outputs.
func NewStaticGenerator(outputs ...string) *StaticGenerator {
	return &StaticGenerator{outputs: outputs}
}

// Generate returns a stream over the next canned output.
func (g *StaticGenerator) Generate(ctx context.Context, _ []Message) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.outputs) == 0 {
		return &textStream{}, nil
	}

	out := g.outputs[g.next]
	if g.next < len(g.outputs)-1 {
		g.next++
	}

	// Split in two so consumers exercise fragment concatenation.
	mid := len(out) / 2
	return &textStream{parts: []string{out[:mid], out[mid:]}}, nil
}

// textStream yields its parts in order, then io.EOF.
type textStream struct {
	parts []string
	i     int
}

func (s *textStream) Recv() (string, error) {
	if s.i >= len(s.parts) {
		return "", io.EOF
	}
	p := s.parts[s.i]
	s.i++
	return p, nil
}
