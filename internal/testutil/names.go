package testutil

import "fmt"

// SequentialNames generates "<prefix>-1", "<prefix>-2", ... in place of
// random store file names, so command output can be compared with golden
// files.
type SequentialNames struct {
	prefix string
	seq    Sequence
}

// NewSequentialNames returns a generator for prefix. An empty prefix
// generates "drawing-N".
func NewSequentialNames(prefix string) *SequentialNames {
	if prefix == "" {
		prefix = "drawing"
	}
	return &SequentialNames{prefix: prefix}
}

// Generate returns the next name.
func (g *SequentialNames) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.seq.Next())
}
