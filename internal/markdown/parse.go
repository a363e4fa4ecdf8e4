package markdown

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse parses src into block nodes. Parsing never fails: anything that is
// not recognised markup stays as text. An unterminated code fence runs to the
// end of the input, so partially streamed answers render sensibly.
func Parse(src string) []Node {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return parseBlocks(strings.Split(src, "\n"))
}

func parseBlocks(lines []string) []Node {
	var nodes []Node
	var para []string

	flush := func() {
		if len(para) > 0 {
			nodes = append(nodes, Node{Kind: Paragraph, Children: ParseInline(strings.Join(para, "\n"))})
			para = nil
		}
	}

	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
			i++

		case isFence(trimmed):
			flush()
			var block Node
			block, i = parseCodeBlock(lines, i)
			nodes = append(nodes, block)

		case isHeading(trimmed):
			flush()
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			nodes = append(nodes, Node{Kind: Paragraph, Children: []Node{
				{Kind: Bold, Children: ParseInline(text)},
			}})
			i++

		default:
			if _, ok := listMarker(line); ok {
				flush()
				var list Node
				list, i = parseList(lines, i)
				nodes = append(nodes, list)
				continue
			}
			para = append(para, trimmed)
			i++
		}
	}
	flush()
	return nodes
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isHeading(trimmed string) bool {
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	return n > 0 && n <= 6 && n < len(trimmed) && trimmed[n] == ' '
}

func parseCodeBlock(lines []string, i int) (Node, int) {
	opening := strings.TrimSpace(lines[i])
	fence := opening[:3]
	lang := strings.TrimSpace(strings.TrimLeft(opening, fence[:1]))

	var body []string
	i++
	for i < len(lines) {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), fence) {
			i++
			break
		}
		body = append(body, lines[i])
		i++
	}
	return Node{Kind: CodeBlock, Lang: lang, Text: strings.Join(body, "\n")}, i
}

type marker struct {
	indent  int
	ordered bool
	number  int
	width   int
}

// listMarker recognises "- ", "* ", "+ ", "1. " and "1) " item markers
func listMarker(line string) (marker, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	rest := line[indent:]
	if len(rest) < 2 {
		return marker{}, false
	}

	switch rest[0] {
	case '-', '*', '+':
		if rest[1] == ' ' {
			return marker{indent: indent, width: 2}, true
		}
		return marker{}, false
	}

	digits := 0
	for digits < len(rest) && digits < 9 && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits+1 >= len(rest) {
		return marker{}, false
	}
	if (rest[digits] == '.' || rest[digits] == ')') && rest[digits+1] == ' ' {
		n, _ := strconv.Atoi(rest[:digits])
		return marker{indent: indent, ordered: true, number: n, width: digits + 2}, true
	}
	return marker{}, false
}

func parseList(lines []string, i int) (Node, int) {
	first, _ := listMarker(lines[i])
	list := Node{Kind: List, Ordered: first.ordered, Start: first.number}

	for i < len(lines) {
		m, ok := listMarker(lines[i])
		if !ok || m.indent != first.indent || m.ordered != first.ordered {
			break
		}

		text := strings.TrimSpace(lines[i][m.indent+m.width:])
		i++

		var nested []string
		for i < len(lines) {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				break
			}
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if indent <= first.indent {
				break
			}
			nested = append(nested, line[min(indent, first.indent+m.width):])
			i++
		}

		item := Node{Kind: ListItem, Children: ParseInline(text)}
		if len(nested) > 0 {
			item.Children = append(item.Children, parseBlocks(nested)...)
		}
		list.Children = append(list.Children, item)

		// a single blank line between items keeps the list going
		if i+1 < len(lines) && strings.TrimSpace(lines[i]) == "" {
			if next, ok := listMarker(lines[i+1]); ok && next.indent == first.indent && next.ordered == first.ordered {
				i++
			}
		}
	}
	return list, i
}

// ParseInline parses inline markup: `code`, **bold**, __bold__, *italic*
// and _italic_. Unmatched delimiters are kept as text.
func ParseInline(s string) []Node {
	var nodes []Node
	var text strings.Builder

	emit := func(n Node) {
		if text.Len() > 0 {
			nodes = append(nodes, Node{Kind: Text, Text: text.String()})
			text.Reset()
		}
		nodes = append(nodes, n)
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '`':
			if end := strings.IndexByte(s[i+1:], '`'); end >= 0 {
				emit(Node{Kind: InlineCode, Text: s[i+1 : i+1+end]})
				i += end + 2
				continue
			}

		case (c == '*' || c == '_') && strings.HasPrefix(s[i:], string([]byte{c, c})):
			delim := s[i : i+2]
			if end := strings.Index(s[i+2:], delim); end > 0 && canOpen(s, i) {
				emit(Node{Kind: Bold, Children: ParseInline(s[i+2 : i+2+end])})
				i += end + 4
				continue
			}

		case c == '*' || c == '_':
			if end := closingSingle(s[i+1:], c); end > 0 && canOpen(s, i) {
				emit(Node{Kind: Italic, Children: ParseInline(s[i+1 : i+1+end])})
				i += end + 2
				continue
			}
		}

		_, size := utf8.DecodeRuneInString(s[i:])
		text.WriteString(s[i : i+size])
		i += size
	}

	if text.Len() > 0 {
		nodes = append(nodes, Node{Kind: Text, Text: text.String()})
	}
	return nodes
}

// canOpen rejects underscores inside words such as snake_case
func canOpen(s string, i int) bool {
	if s[i] != '_' || i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// closingSingle finds a single delimiter c that is not part of a double one
func closingSingle(s string, c byte) int {
	for j := 0; j < len(s); j++ {
		if s[j] != c {
			continue
		}
		if j+1 < len(s) && s[j+1] == c {
			j++
			continue
		}
		return j
	}
	return -1
}
