package newick

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/tree"
)

var (
	ErrEmpty             = errors.New("empty newick")
	ErrUnbalanced        = errors.New("unbalanced parentheses")
	ErrMissingTerminator = errors.New("missing terminating semicolon")
)

// SyntaxError reports a malformed Newick string and the byte offset where parsing failed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("newick: %s at offset %d", e.Msg, e.Offset)
}

// ParseOptions controls the parser.
type ParseOptions struct {
	// UnderscoreToSpace converts underscores of unquoted labels to spaces, as the PHYLIP convention does.
	// By default underscores are kept literally.
	UnderscoreToSpace bool
	// AllowMissingTerminator accepts a string that does not end with a semicolon.
	AllowMissingTerminator bool
}

// Parse parses a single Newick tree with the default options.
func Parse(s string) (*tree.Node, error) {
	return ParseWith(s, ParseOptions{})
}

// ParseWith parses a single Newick tree.
func ParseWith(s string, opts ParseOptions) (*tree.Node, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmpty
	}

	if !IsBalanced(s) {
		return nil, ErrUnbalanced
	}

	p := &parser{src: s, opts: opts}

	root, err := p.subtree()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.done() {
		if !opts.AllowMissingTerminator {
			return nil, ErrMissingTerminator
		}

		return root, nil
	}

	if p.peek() != ';' {
		return nil, p.errorf("unexpected %q", p.peek())
	}

	p.pos++
	p.skipSpace()

	if !p.done() {
		return nil, p.errorf("trailing data after semicolon")
	}

	return root, nil
}

type parser struct {
	src  string
	pos  int
	opts ParseOptions
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace skips whitespace and bracketed comments.
func (p *parser) skipSpace() {
	for !p.done() {
		switch c := p.peek(); {
		case c == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.src)

				return
			}

			p.pos += end + 1
		case unicode.IsSpace(rune(c)):
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) subtree() (*tree.Node, error) {
	p.skipSpace()

	node := &tree.Node{}

	if !p.done() && p.peek() == '(' {
		p.pos++

		for {
			child, err := p.subtree()
			if err != nil {
				return nil, err
			}

			node.AddChild(child)
			p.skipSpace()

			if p.done() {
				return nil, p.errorf("unexpected end of input")
			}

			c := p.peek()
			p.pos++

			if c == ')' {
				break
			}

			if c != ',' {
				p.pos--

				return nil, p.errorf("unexpected %q in children list", c)
			}
		}
	}

	name, err := p.label()
	if err != nil {
		return nil, err
	}

	node.Name = name
	p.skipSpace()

	if !p.done() && p.peek() == ':' {
		p.pos++

		length, err := p.length()
		if err != nil {
			return nil, err
		}

		node.SetLength(length)
	}

	return node, nil
}

func (p *parser) label() (string, error) {
	p.skipSpace()

	if p.done() {
		return "", nil
	}

	if p.peek() == '\'' {
		return p.quoted()
	}

	start := p.pos
	for !p.done() && !isDelimiter(p.peek()) {
		p.pos++
	}

	name := strings.TrimSpace(p.src[start:p.pos])
	if p.opts.UnderscoreToSpace {
		name = strings.ReplaceAll(name, "_", " ")
	}

	return name, nil
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++

	var sb strings.Builder

	for !p.done() {
		c := p.peek()
		p.pos++

		if c != '\'' {
			sb.WriteByte(c)

			continue
		}

		if !p.done() && p.peek() == '\'' {
			sb.WriteByte('\'')
			p.pos++

			continue
		}

		return sb.String(), nil
	}

	p.pos = start

	return "", p.errorf("unterminated quoted label")
}

func (p *parser) length() (float64, error) {
	p.skipSpace()
	start := p.pos

	for !p.done() && !isDelimiter(p.peek()) && !unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}

	raw := p.src[start:p.pos]
	if raw == "" {
		return 0, p.errorf("missing branch length")
	}

	length, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.pos = start

		return 0, p.errorf("invalid branch length %q", raw)
	}

	return length, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', ',', ':', ';', '[', '\'':
		return true
	default:
		return false
	}
}
