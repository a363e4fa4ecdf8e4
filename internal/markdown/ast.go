// Package markdown parses the lightly structured text of assistant answers
// into a small, closed set of node kinds.
package markdown

import "strings"

// Kind is the type of a node
type Kind int

const (
	Paragraph Kind = iota
	List
	ListItem
	InlineCode
	CodeBlock
	Bold
	Italic
	Text
)

func (k Kind) String() string {
	switch k {
	case Paragraph:
		return "paragraph"
	case List:
		return "list"
	case ListItem:
		return "list-item"
	case InlineCode:
		return "inline-code"
	case CodeBlock:
		return "code-block"
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Node is one element of a parsed document.
// Text is set on leaves (Text, InlineCode, CodeBlock); container kinds hold
// Children. Ordered and Start only apply to List, Lang only to CodeBlock.
type Node struct {
	Kind     Kind
	Text     string
	Lang     string
	Ordered  bool
	Start    int
	Children []Node
}

// IsBlock reports whether the kind starts on its own line
func (k Kind) IsBlock() bool {
	switch k {
	case Paragraph, List, ListItem, CodeBlock:
		return true
	}
	return false
}

// Walk visits nodes depth first. Returning false from fn skips the node's
// children.
func Walk(nodes []Node, fn func(n Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(Node, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// PlainText returns the text of the document with all markup removed
func PlainText(nodes []Node) string {
	var sb strings.Builder
	writePlain(&sb, nodes)
	return strings.TrimRight(sb.String(), "\n")
}

func writePlain(sb *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n.Kind {
		case Text, InlineCode:
			sb.WriteString(n.Text)
		case CodeBlock:
			sb.WriteString(n.Text)
			sb.WriteString("\n")
		case Bold, Italic:
			writePlain(sb, n.Children)
		case Paragraph, ListItem:
			writePlain(sb, n.Children)
			sb.WriteString("\n")
		case List:
			writePlain(sb, n.Children)
		}
	}
}
