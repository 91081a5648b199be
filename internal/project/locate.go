// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Position is a 1-based line and column in a source file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Locate returns the position of the deepest node on the pointer path.
// For a missing key this is the enclosing object; for an object member it is
// the key. JSON and YAML are supported; TOML is not.
func Locate(data []byte, f Format, pointer string) (Position, bool) {
	if f != FormatJSON && f != FormatYAML {
		return Position{}, false
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return Position{}, false
	}

	node := root.Content[0]
	pos := Position{Line: node.Line, Column: node.Column}
	for _, tok := range SplitPointer(pointer) {
		next, at := child(node, tok)
		if next == nil {
			break
		}
		node = next
		pos = at
	}
	return pos, true
}

// child resolves one pointer token and returns the node plus the position to report.
func child(node *yaml.Node, tok string) (*yaml.Node, Position) {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Value == tok {
				return node.Content[i+1], Position{Line: key.Line, Column: key.Column}
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(tok)
		if err != nil || idx < 0 || idx >= len(node.Content) {
			return nil, Position{}
		}
		item := node.Content[idx]
		return item, Position{Line: item.Line, Column: item.Column}
	}
	return nil, Position{}
}
