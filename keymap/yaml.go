//go:build !tinygo && !baremetal

package keymap

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the YAML layout of a keymap file:
//
//	rows: 5
//	cols: 6
//	layers:
//	  - name: base
//	    keys:
//	      - [Equal, "1", "2", "3", "4", "5"]
//	      ...
//	macros:
//	  - id: 0
//	    keys: [H, I]
type document struct {
	Rows   int             `yaml:"rows"`
	Cols   int             `yaml:"cols"`
	Layers []layerDocument `yaml:"layers"`
	Macros []macroDocument `yaml:"macros,omitempty"`
}

type layerDocument struct {
	Name string   `yaml:"name,omitempty"`
	Keys []keyRow `yaml:"keys"`
}

// keyRow encodes as a flow sequence so each matrix row stays on one line.
type keyRow []string

func (r keyRow) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, s := range r {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
	}
	return n, nil
}

type macroDocument struct {
	ID   uint8    `yaml:"id"`
	Keys []string `yaml:"keys,flow"`
}

// LoadFile reads and validates a YAML keymap.
func LoadFile(path string) (*Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keymap: %w", err)
	}
	defer f.Close()

	k, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// Load decodes and validates a YAML keymap from r.
func Load(r io.Reader) (*Keymap, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode keymap: %w", err)
	}
	return doc.keymap()
}

func (doc *document) keymap() (*Keymap, error) {
	if doc.Rows <= 0 || doc.Cols <= 0 || len(doc.Layers) == 0 {
		return nil, fmt.Errorf("%w: %d layers of %dx%d", ErrShape, len(doc.Layers), doc.Rows, doc.Cols)
	}
	k := New(len(doc.Layers), doc.Rows, doc.Cols)
	for l, layer := range doc.Layers {
		if len(layer.Keys) != doc.Rows {
			return nil, fmt.Errorf("%w: layer %d has %d rows, want %d", ErrShape, l, len(layer.Keys), doc.Rows)
		}
		for r, row := range layer.Keys {
			if len(row) != doc.Cols {
				return nil, fmt.Errorf("%w: layer %d row %d has %d keys, want %d", ErrShape, l, r, len(row), doc.Cols)
			}
			for c, expr := range row {
				d, err := Parse(expr)
				if err != nil {
					return nil, fmt.Errorf("layer %d (%d,%d): %w", l, r, c, err)
				}
				k.Set(l, r, c, d)
			}
		}
	}
	for _, m := range doc.Macros {
		seq := make([]uint8, 0, len(m.Keys))
		for _, name := range m.Keys {
			code, err := parseKey(name)
			if err != nil {
				return nil, fmt.Errorf("macro %d: %w", m.ID, err)
			}
			seq = append(seq, code)
		}
		k.SetMacro(m.ID, seq)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Marshal renders k as a YAML document that Load accepts.
func Marshal(k *Keymap) ([]byte, error) {
	doc := document{Rows: k.rows, Cols: k.cols}
	for l := range k.layers {
		ld := layerDocument{Name: fmt.Sprintf("layer%d", l), Keys: make([]keyRow, k.rows)}
		for r := 0; r < k.rows; r++ {
			row := make(keyRow, k.cols)
			for c := 0; c < k.cols; c++ {
				row[c] = k.At(l, r, c).String()
			}
			ld.Keys[r] = row
		}
		doc.Layers = append(doc.Layers, ld)
	}
	for _, id := range k.MacroIDs() {
		seq, _ := k.Macro(id)
		md := macroDocument{ID: id}
		for _, code := range seq {
			md.Keys = append(md.Keys, KeyName(code))
		}
		doc.Macros = append(doc.Macros, md)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode keymap: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode keymap: %w", err)
	}
	return buf.Bytes(), nil
}
