// Package vardb is the variable database components read their parameters
// from. A variable holds a number, or a zygomys expression over the
// variables defined before it that is evaluated when it is set.
package vardb

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"time"

	"github.com/chazu/carve/pkg/errs"
	"gopkg.in/yaml.v3"
)

// Source is what a component's populate step reads.
type Source interface {
	// Value returns the named variable, or a not-found error.
	Value(name string) (float64, error)
}

// Number is the set of types EvalVar can produce.
type Number interface {
	~int | ~int64 | ~float64
}

// EvalVar reads name from src as a T. Integer types refuse values with a
// fractional part.
func EvalVar[T Number](src Source, name string) (T, error) {
	v, err := src.Value(name)
	if err != nil {
		return 0, err
	}
	half := 0.5
	if T(half) != 0 {
		return T(v), nil
	}
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, errs.Configf("eval-var", "%s = %g is not an integer", name, v)
	}
	return T(v), nil
}

// EvalDefaultVar is EvalVar returning def when name is not defined. Any
// other failure is still returned.
func EvalDefaultVar[T Number](src Source, name string, def T) (T, error) {
	v, err := EvalVar[T](src, name)
	if errors.Is(err, errs.ErrNotFound) {
		return def, nil
	}
	return v, err
}

// Prefixed returns a view of src in which every name is looked up with
// prefix prepended, so "Length" on a "bunker" view reads "bunkerLength".
func Prefixed(src Source, prefix string) Source {
	return prefixed{src: src, prefix: prefix}
}

type prefixed struct {
	src    Source
	prefix string
}

func (p prefixed) Value(name string) (float64, error) { return p.src.Value(p.prefix + name) }

// ---------------------------------------------------------------------------
// DB
// ---------------------------------------------------------------------------

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type variable struct {
	value float64
	expr  string
}

// DB is an ordered variable store.
type DB struct {
	// Timeout bounds each expression evaluation; zero means EvalTimeout.
	Timeout time.Duration

	order []string
	vars  map[string]variable
}

// New returns an empty database.
func New() *DB { return &DB{vars: make(map[string]variable)} }

// Value implements Source.
func (db *DB) Value(name string) (float64, error) {
	v, ok := db.vars[name]
	if !ok {
		return 0, errs.NotFoundf("var", "variable %q not defined", name)
	}
	return v.value, nil
}

// Has reports whether name is defined.
func (db *DB) Has(name string) bool {
	_, ok := db.vars[name]
	return ok
}

// Names returns every variable name in definition order.
func (db *DB) Names() []string { return append([]string(nil), db.order...) }

// Expr returns the expression name was defined by, or "" for a plain
// number.
func (db *DB) Expr(name string) string { return db.vars[name].expr }

func (db *DB) define(name string, v variable) error {
	if !namePattern.MatchString(name) {
		return errs.Configf("set-var", "invalid variable name %q", name)
	}
	if reserved(name) {
		return errs.Configf("set-var", "%q is a reserved word or builtin of the expression language", name)
	}
	if _, ok := db.vars[name]; !ok {
		db.order = append(db.order, name)
	}
	db.vars[name] = v
	return nil
}

// Set defines name as a number, replacing any earlier definition. Later
// expressions see the new value; earlier ones keep what they computed.
func (db *DB) Set(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errs.Configf("set-var", "%s = %g is not finite", name, value)
	}
	return db.define(name, variable{value: value})
}

// SetExpr evaluates expr with every variable defined so far in scope and
// stores the result under name.
func (db *DB) SetExpr(name, expr string) error {
	v, err := db.Eval(expr)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errs.Configf("set-var", "%s = %g is not finite", name, v)
	}
	return db.define(name, variable{value: v, expr: expr})
}

// LoadYAML reads a mapping of variable names to numbers or expression
// strings, defining them in document order.
func (db *DB) LoadYAML(r io.Reader) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Wrap(errs.KindConfiguration, "load-vars", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return errs.Configf("load-vars", "line %d: variables must be a mapping", m.Line)
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return errs.Configf("load-vars", "line %d: %s must be a number or expression", v.Line, k.Value)
		}
		var err error
		switch v.Tag {
		case "!!int", "!!float":
			var f float64
			if err = v.Decode(&f); err == nil {
				err = db.Set(k.Value, f)
			}
		default:
			err = db.SetExpr(k.Value, v.Value)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", v.Line, err)
		}
	}
	return nil
}
