// Package tomlscan wraps the tree-sitter TOML grammar behind the few
// operations the manifest parsers need: parsing to a syntax tree and
// reading keys and string literals with their byte spans.
package tomlscan

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/toml"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
)

var lang = toml.GetLanguage()

// Parse builds a syntax tree for TOML text. The caller owns the tree
// and must Close it.
func Parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecosystem.ErrParse, err)
	}
	return tree, nil
}

// Span returns the node's byte range.
func Span(n *sitter.Node) manifest.Span {
	return manifest.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// KeyText flattens a bare, quoted or dotted key node to its textual
// form, with quotes stripped and dotted segments joined by ".".
func KeyText(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "dotted_key":
		var parts []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			parts = append(parts, KeyText(n.NamedChild(i), src))
		}
		return strings.Join(parts, ".")
	case "quoted_key", "string":
		return Unquote(n.Content(src))
	default:
		return n.Content(src)
	}
}

// Unquote strips one layer of single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Pairs collects the pair nodes directly under a table or inline table.
func Pairs(n *sitter.Node) []*sitter.Node {
	var pairs []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "pair" {
			pairs = append(pairs, child)
		}
	}
	return pairs
}

// PairParts splits a pair node into its key and value nodes. The value
// is nil for incomplete pairs mid-edit.
func PairParts(pair *sitter.Node) (key, value *sitter.Node) {
	count := int(pair.NamedChildCount())
	if count > 0 {
		key = pair.NamedChild(0)
	}
	if count > 1 {
		value = pair.NamedChild(count - 1)
	}
	return key, value
}
