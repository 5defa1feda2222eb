package phy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/colonyops/phyline/pkg/utils"
)

// ErrMalformedTree is returned when a document or tree is missing the fields
// the renderer needs. Callers degrade to an unmapped view instead of failing.
var ErrMalformedTree = errors.New("malformed tree")

// Document is the on-disk PHY file produced by the syntax-tree provider.
type Document struct {
	Chunks   Chunks   `json:"phy_chunks"`
	Metadata Metadata `json:"metadata"`
}

// Chunks holds the document roots. Only "main" is rendered.
type Chunks struct {
	Main *Node `json:"main"`
}

// Metadata describes where the document came from.
type Metadata struct {
	SourceFile string `json:"source_file,omitempty"`
}

// Root returns the document's main tree.
func (d *Document) Root() *Node {
	if d == nil {
		return nil
	}
	return d.Chunks.Main
}

// Decode parses a PHY document. Text wrapped in a Markdown code fence is
// accepted since generators frequently emit one.
func Decode(data []byte) (*Document, error) {
	text := utils.StripCodeFence(string(data))

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if doc.Chunks.Main == nil {
		return nil, fmt.Errorf("decode document: missing phy_chunks.main: %w", ErrMalformedTree)
	}

	return &doc, nil
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode writes the document as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}
