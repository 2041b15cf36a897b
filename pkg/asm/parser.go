package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/theultimat/idli/pkg/isa"
)

// labelPattern recognises a label definition token: a run of word
// characters followed by a colon. Unanchored at the end, matching
// asm.py's `re.match(r'[_0-9a-zA-Z]+:', parts[0])` which only requires
// the token to start with a valid label, not consist of one entirely.
var labelPattern = regexp.MustCompile(`^[_0-9a-zA-Z]+:`)

// parser holds the pass-1 state shared across recursive file/line/
// directive parsing: only the verbose trace destination.
type parser struct {
	verbose bool
	out     io.Writer
}

func (p *parser) logf(indent int, format string, args ...any) {
	if !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "%s%s\n", strings.Repeat(" ", indent), fmt.Sprintf(format, args...))
}

// parseFile reads path line by line, expanding .include directives
// recursively, and returns the flat item stream.
func (p *parser) parseFile(path string, indent int) ([]Item, error) {
	p.logf(indent, "- Parse file: %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	var items []Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		pos := isa.Pos{File: path, Line: lineNo}
		lineItems, err := p.parseLine(strings.TrimSpace(scanner.Text()), filepath.Dir(path), pos, indent+1)
		if err != nil {
			return nil, err
		}
		items = append(items, lineItems...)
	}
	if err := scanner.Err(); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	return items, nil
}

// parseLine strips comments, tokenizes, and walks the remaining tokens
// left to right: a `name:` token is a label, a `.name` token introduces a
// directive, anything else must be a whole instruction.
func (p *parser) parseLine(line string, incDir string, pos isa.Pos, indent int) ([]Item, error) {
	stripped := stripComment(line)
	if stripped == "" {
		return nil, nil
	}

	p.logf(indent, "- Parse line: %s", stripped)
	parts := tokenize(stripped)

	var items []Item
	for len(parts) > 0 {
		tok := parts[0]

		switch {
		case strings.HasSuffix(tok, ":"):
			label, rest, err := p.parseLabel(parts, pos, indent+1)
			if err != nil {
				return nil, err
			}
			items = append(items, label)
			parts = rest

		case strings.HasPrefix(tok, "."):
			dirItems, rest, err := p.parseDirective(parts, incDir, pos, indent+1)
			if err != nil {
				return nil, err
			}
			items = append(items, dirItems...)
			parts = rest

		default:
			instr, err := isa.FromTokens(parts, pos)
			if err != nil {
				return nil, err
			}
			items = append(items, instr)
			p.logf(indent+1, "- Instruction(%s)", instr)
			parts = nil
		}
	}

	return items, nil
}

// parseLabel consumes the leading label token and returns the
// now-shortened token list.
func (p *parser) parseLabel(parts []string, pos isa.Pos, indent int) (Label, []string, error) {
	tok := parts[0]
	if !labelPattern.MatchString(tok) {
		return Label{}, parts, &isa.SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: bad label name: %s", isa.ErrSyntax, tok)}
	}

	name := tok[:len(tok)-1]
	label := Label{Name: name, Local: isa.IsLocalLabel(name)}
	p.logf(indent, "- %+v", label)

	return label, parts[1:], nil
}

// parseDirective consumes a leading `.directive` token (and whatever
// operands it needs) and returns the items it produces, plus the
// remaining tokens.
func (p *parser) parseDirective(parts []string, incDir string, pos isa.Pos, indent int) ([]Item, []string, error) {
	name := parts[0]
	rest := parts[1:]

	switch name {
	case ".include":
		if len(rest) != 1 {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: name, Err: ErrJunkAtEndOfLine}
		}
		raw := rest[0]
		rest = rest[1:]

		if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: raw, Err: fmt.Errorf("%w: bad include path string format", isa.ErrSyntax)}
		}
		path := filepath.Join(incDir, raw[1:len(raw)-1])

		if _, err := os.Stat(path); err != nil {
			return nil, rest, &IOError{Path: path, Err: err}
		}
		items, err := p.parseFile(path, indent)
		return items, rest, err

	case ".int":
		if len(rest) != 1 {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: name, Err: ErrJunkAtEndOfLine}
		}
		v, err := isa.ParseImmediate(rest[0])
		if err != nil {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: rest[0], Err: err}
		}
		rest = rest[1:]

		item := Int{Value: v}
		p.logf(indent, "- %+v", item)
		return []Item{item}, rest, nil

	case ".zeros":
		if len(rest) != 1 {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: name, Err: ErrJunkAtEndOfLine}
		}
		n, err := strconv.ParseInt(rest[0], 0, 64)
		if err != nil {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: rest[0], Err: err}
		}
		rest = rest[1:]
		if n < 1 {
			return nil, rest, &isa.SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: bad number of zeros: %d", isa.ErrSyntax, n)}
		}

		items := make([]Item, n)
		for i := range items {
			items[i] = Int{Value: 0}
		}
		p.logf(indent, "- Int(value=0) * %d", n)
		return items, rest, nil

	default:
		return nil, rest, &isa.SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: unknown directive: %s", isa.ErrSyntax, name)}
	}
}
