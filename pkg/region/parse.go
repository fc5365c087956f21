package region

import (
	"strconv"

	"github.com/chazu/carve/pkg/errs"
)

// Grammar (whitespace separates tokens; intersection binds tighter than
// union):
//
//	union  = inter { ":" inter }
//	inter  = factor { factor }
//	factor = INT | "(" union ")" | "#" INT | "#" "(" union ")"
//
// A positive INT is the positive side of that surface, a negative INT the
// negative side; "#N" is the complement of cell N's region.

type tokenKind uint8

const (
	tokInt tokenKind = iota
	tokColon
	tokOpen
	tokClose
	tokHash
	tokEOF
)

type token struct {
	kind tokenKind
	val  int
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokOpen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokClose, pos: i})
			i++
		case c == '#':
			toks = append(toks, token{kind: tokHash, pos: i})
			i++
		case c == '-' || c == '+' || isDigit(c):
			start := i
			i++
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			text := src[start:i]
			v, err := strconv.Atoi(text)
			if err != nil {
				return nil, errs.Configf("parse", "bad number %q at offset %d", text, start)
			}
			if v == 0 {
				return nil, errs.Configf("parse", "surface or cell id 0 at offset %d", start)
			}
			toks = append(toks, token{kind: tokInt, val: v, pos: start})
		default:
			return nil, errs.Configf("parse", "unexpected character %q at offset %d", c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type parser struct {
	toks []token
	pos  int
	t    *Tree
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tk := p.toks[p.pos]
	if tk.kind != tokEOF {
		p.pos++
	}
	return tk
}

func (p *parser) union() (int, error) {
	l, err := p.inter()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokColon {
		p.next()
		r, err := p.inter()
		if err != nil {
			return 0, err
		}
		l = p.t.Or(l, r)
	}
	return l, nil
}

func (p *parser) inter() (int, error) {
	l, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokInt, tokOpen, tokHash:
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			l = p.t.And(l, r)
		default:
			return l, nil
		}
	}
}

func (p *parser) factor() (int, error) {
	tk := p.next()
	switch tk.kind {
	case tokInt:
		return p.t.Leaf(tk.val), nil
	case tokOpen:
		return p.group(tk)
	case tokHash:
		nt := p.next()
		switch nt.kind {
		case tokInt:
			if nt.val < 0 {
				return 0, errs.Configf("parse", "negative cell id %d at offset %d", nt.val, nt.pos)
			}
			return p.t.Not(p.t.CellRef(nt.val)), nil
		case tokOpen:
			g, err := p.group(nt)
			if err != nil {
				return 0, err
			}
			return p.t.Not(g), nil
		}
		return 0, errs.Configf("parse", "expected cell id or group after '#' at offset %d", nt.pos)
	case tokEOF:
		return 0, errs.Configf("parse", "unexpected end of expression")
	}
	return 0, errs.Configf("parse", "unexpected token at offset %d", tk.pos)
}

func (p *parser) group(open token) (int, error) {
	g, err := p.union()
	if err != nil {
		return 0, err
	}
	if cl := p.next(); cl.kind != tokClose {
		return 0, errs.Configf("parse", "unbalanced '(' at offset %d", open.pos)
	}
	return g, nil
}

// ParseTree parses text into a tree. Blank text yields an empty tree.
func ParseTree(text string) (*Tree, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	t := NewTree()
	if toks[0].kind == tokEOF {
		return t, nil
	}
	p := &parser{toks: toks, t: t}
	root, err := p.union()
	if err != nil {
		return nil, err
	}
	if tk := p.peek(); tk.kind != tokEOF {
		return nil, errs.Configf("parse", "unexpected token at offset %d", tk.pos)
	}
	t.SetRoot(root)
	return t, nil
}
