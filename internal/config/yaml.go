package config

import (
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML replaces the switch content with a YAML mapping or with a
// string written in the block grammar. Mapping keys and values must be
// scalars and are parsed with the switch codecs, so both forms accept the
// same values.
func (s *Switch[K, V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if err := s.Parse(NewInput(node.Value)); err != nil {
			return shiftError(node, err)
		}

		return nil
	}

	if node.Kind != yaml.MappingNode {
		return nodeError(node, "mapping is expected")
	}

	s.Clear()

	for i := 0; i+1 < len(node.Content); i += 2 {
		kn, vn := node.Content[i], node.Content[i+1]

		if kn.Kind != yaml.ScalarNode {
			return nodeError(kn, "scalar key is expected")
		}

		if vn.Kind != yaml.ScalarNode {
			return nodeError(vn, "scalar value is expected")
		}

		key, err := ParseText(s.keys, kn.Value)
		if err != nil {
			return shiftError(kn, err)
		}

		val, err := ParseText(s.vals, vn.Value)
		if err != nil {
			return shiftError(vn, err)
		}

		*s.FindOrInsert(key) = val
	}

	return nil
}

// MarshalYAML renders the switch as a mapping in ascending key order.
func (s *Switch[K, V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, e := range s.entries {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: Sprint(s.keys, e.key)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: Sprint(s.vals, e.val)},
		)
	}

	return node, nil
}

func nodeError(node *yaml.Node, msg string) *ParseError {
	return &ParseError{
		Pos: Position{Line: node.Line, Column: node.Column},
		Msg: msg,
	}
}

// shiftError moves a ParseError from scalar-relative to document
// coordinates.
func shiftError(node *yaml.Node, err error) error {
	pe, ok := err.(*ParseError)
	if !ok {
		return err
	}

	pos := Position{Line: node.Line, Column: node.Column}
	if pe.Pos.Line == 1 {
		pos.Column += pe.Pos.Column - 1
	} else {
		pos.Line += pe.Pos.Line - 1
		pos.Column = pe.Pos.Column
	}

	return &ParseError{Pos: pos, Msg: pe.Msg}
}
