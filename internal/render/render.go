// Package render turns solver renderings into plain Unicode math text for
// terminals and reports.
package render

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// Math converts a rendering into display text. It fails on unbalanced
// groups or unknown commands so callers can fall back to the raw text.
func Math(text string) (string, error) {
	p := &parser{src: text}
	out, err := p.seq(0)
	if err != nil {
		return "", fmt.Errorf("render %q: %w", text, err)
	}
	return out, nil
}

// Display renders an item for humans, falling back to "raw = value" when the
// markup cannot be converted.
func Display(it expr.Item) string {
	out, err := Math(it.Text)
	if err != nil {
		return it.Text + " = " + Value(it.Value)
	}
	return out
}

// Equation renders an item followed by its value, as "text = value". The
// value appears once whether or not the markup converts.
func Equation(it expr.Item) string {
	if out, err := Math(it.Text); err == nil {
		return out + " = " + Value(it.Value)
	}
	return Display(it)
}

// Value formats a number in its shortest %g form.
func Value(v float64) string {
	return fmt.Sprintf("%g", v)
}

type parser struct {
	src string
	pos int
}

// seq reads until stop (or end of input when stop is 0) and consumes stop.
func (p *parser) seq(stop byte) (string, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if stop != 0 && c == stop {
			p.pos++
			return b.String(), nil
		}
		switch c {
		case '}', ']':
			return "", fmt.Errorf("unexpected %q at %d", c, p.pos)
		case '\\':
			s, err := p.command()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '{':
			p.pos++
			s, err := p.seq('}')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '^':
			p.pos++
			s, err := p.exponent()
			if err != nil {
				return "", err
			}
			b.WriteString("^" + s)
		case '*':
			p.pos++
			b.WriteString("×")
		case '/':
			p.pos++
			b.WriteString("÷")
		default:
			p.pos++
			b.WriteByte(c)
		}
	}
	if stop != 0 {
		return "", fmt.Errorf("missing %q", stop)
	}
	return b.String(), nil
}

func (p *parser) command() (string, error) {
	p.pos++ // backslash
	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	switch name {
	case "times":
		return "×", nil
	case "div":
		return "÷", nil
	case "sqrt":
		var index string
		if p.peek('[') {
			p.pos++
			s, err := p.seq(']')
			if err != nil {
				return "", err
			}
			index = s
		}
		body, err := p.group()
		if err != nil {
			return "", err
		}
		if index != "" {
			return "root[" + index + "](" + body + ")", nil
		}
		return "√(" + body + ")", nil
	case "sum":
		if !p.peek('_') {
			return "", fmt.Errorf("sum without lower bound at %d", p.pos)
		}
		p.pos++
		lo, err := p.group()
		if err != nil {
			return "", err
		}
		if !p.peek('^') {
			return "", fmt.Errorf("sum without upper bound at %d", p.pos)
		}
		p.pos++
		hi, err := p.group()
		if err != nil {
			return "", err
		}
		return "Σ[" + lo + ".." + hi + "]", nil
	default:
		return "", fmt.Errorf("unknown command %q", name)
	}
}

// exponent renders the part after a caret: bare when it is a single token,
// parenthesized otherwise.
func (p *parser) exponent() (string, error) {
	if !p.peek('{') {
		return "", nil
	}
	s, err := p.group()
	if err != nil {
		return "", err
	}
	if isSimple(s) {
		return s, nil
	}
	return "(" + s + ")", nil
}

func (p *parser) group() (string, error) {
	if !p.peek('{') {
		return "", fmt.Errorf("expected '{' at %d", p.pos)
	}
	p.pos++
	return p.seq('}')
}

func (p *parser) peek(c byte) bool {
	return p.pos < len(p.src) && p.src[p.pos] == c
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSimple(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}
