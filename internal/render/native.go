package render

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatdrawer/internal/markdown"
)

type nativeStyles struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	code      lipgloss.Style
	codeBlock lipgloss.Style
	codeLang  lipgloss.Style
	marker    lipgloss.Style
}

func newNativeStyles(p Palette) nativeStyles {
	return nativeStyles{
		bold:      lipgloss.NewStyle().Bold(true).Foreground(p.Text),
		italic:    lipgloss.NewStyle().Italic(true),
		code:      lipgloss.NewStyle().Foreground(p.Secondary).Background(p.Surface),
		codeBlock: lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(p.Border).PaddingLeft(1),
		codeLang:  lipgloss.NewStyle().Foreground(p.TextDim).Italic(true),
		marker:    lipgloss.NewStyle().Foreground(p.Primary),
	}
}

type nativeRenderer struct {
	styles    nativeStyles
	width     int
	codeStyle string
}

// Native renders a parsed document with one explicit case per node kind.
func Native(nodes []markdown.Node, opts Options) string {
	palette, _ := PaletteByName(opts.Theme)
	r := &nativeRenderer{
		styles:    newNativeStyles(palette),
		width:     opts.Width,
		codeStyle: opts.CodeStyle,
	}
	return strings.Join(r.blocks(nodes, r.width), "\n\n")
}

// blocks renders each block node to its own string
func (r *nativeRenderer) blocks(nodes []markdown.Node, width int) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch n.Kind {
		case markdown.Paragraph:
			out = append(out, r.wrap(r.inline(n.Children), width))
		case markdown.List:
			out = append(out, r.list(n, width))
		case markdown.CodeBlock:
			out = append(out, r.codeBlock(n))
		case markdown.ListItem:
			out = append(out, r.item(n, "• ", width))
		case markdown.Bold, markdown.Italic, markdown.InlineCode, markdown.Text:
			out = append(out, r.wrap(r.inline([]markdown.Node{n}), width))
		}
	}
	return out
}

func (r *nativeRenderer) list(n markdown.Node, width int) string {
	start := n.Start
	if start == 0 {
		start = 1
	}

	items := make([]string, 0, len(n.Children))
	for i, item := range n.Children {
		marker := "• "
		if n.Ordered {
			marker = strconv.Itoa(start+i) + ". "
		}
		items = append(items, r.item(item, marker, width))
	}
	return strings.Join(items, "\n")
}

// item renders the inline head of a list item after its marker and indents
// nested blocks under it
func (r *nativeRenderer) item(n markdown.Node, marker string, width int) string {
	var head, rest []markdown.Node
	for i, child := range n.Children {
		if child.Kind.IsBlock() {
			rest = n.Children[i:]
			break
		}
		head = append(head, child)
	}

	pad := lipgloss.Width(marker)
	inner := width - pad
	if width <= 0 {
		inner = 0
	}

	lines := []string{r.wrap(r.inline(head), inner)}
	lines = append(lines, r.blocks(rest, inner)...)

	first, tail, _ := strings.Cut(strings.Join(lines, "\n"), "\n")
	out := r.styles.marker.Render(marker) + first
	if tail != "" {
		out += "\n" + indent(tail, pad)
	}
	return out
}

func (r *nativeRenderer) inline(nodes []markdown.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case markdown.Text:
			sb.WriteString(n.Text)
		case markdown.Bold:
			sb.WriteString(r.styles.bold.Render(r.inline(n.Children)))
		case markdown.Italic:
			sb.WriteString(r.styles.italic.Render(r.inline(n.Children)))
		case markdown.InlineCode:
			sb.WriteString(r.styles.code.Render(n.Text))
		case markdown.CodeBlock:
			sb.WriteString(n.Text)
		case markdown.Paragraph, markdown.List, markdown.ListItem:
			sb.WriteString(r.inline(n.Children))
		}
	}
	return sb.String()
}

func (r *nativeRenderer) codeBlock(n markdown.Node) string {
	body := Highlight(n.Text, n.Lang, r.codeStyle)
	if n.Lang != "" {
		body = r.styles.codeLang.Render(n.Lang) + "\n" + body
	}
	return r.styles.codeBlock.Render(body)
}

func (r *nativeRenderer) wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// Highlight applies chroma syntax highlighting for the terminal. Unknown
// languages are guessed from the code; on any failure the code is returned
// unchanged.
func Highlight(code, language, style string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	s := chromastyles.Get(style)
	if s == nil {
		s = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, s, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
