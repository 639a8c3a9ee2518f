package meshio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// EncodeJSON writes m as one JSON object. indent > 0 pretty-prints with that
// many spaces per level; 0 writes a single line.
func EncodeJSON(w io.Writer, m *polymesh.Mesh, indent int) error {
	doc, err := NewDocument(m)
	if err != nil {
		return err
	}
	return doc.WriteJSON(w, indent)
}

// WriteJSON writes the document as JSON.
func (d *Document) WriteJSON(w io.Writer, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// DecodeJSON reads a document written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return &doc, nil
}
