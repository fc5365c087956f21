package vardb

import (
	"strings"
	"testing"
	"time"

	"github.com/chazu/carve/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumbersAndExpressions(t *testing.T) {
	db := New()
	require.NoError(t, db.Set("wall", 0.5))
	require.NoError(t, db.Set("inner", 3))
	require.NoError(t, db.SetExpr("outer", "(+ inner (* 2 wall))"))

	v, err := EvalVar[float64](db, "outer")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-12)
	assert.Equal(t, "(+ inner (* 2 wall))", db.Expr("outer"))
	assert.Equal(t, "", db.Expr("wall"))
	assert.Equal(t, []string{"wall", "inner", "outer"}, db.Names())

	n, err := EvalVar[int](db, "inner")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = EvalVar[int](db, "wall")
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestRedefinitionKeepsEarlierResults(t *testing.T) {
	db := New()
	require.NoError(t, db.Set("a", 1))
	require.NoError(t, db.SetExpr("b", "(* a 10)"))
	require.NoError(t, db.Set("a", 2))
	require.NoError(t, db.SetExpr("c", "(* a 10)"))

	b, err := db.Value("b")
	require.NoError(t, err)
	c, err := db.Value("c")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, b, 1e-12)
	assert.InDelta(t, 20.0, c, 1e-12)
	assert.Equal(t, []string{"a", "b", "c"}, db.Names())
}

func TestDefaults(t *testing.T) {
	db := New()
	require.NoError(t, db.Set("count", 4))

	v, err := EvalDefaultVar(db, "missing", 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12)

	n, err := EvalDefaultVar(db, "count", 9)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = EvalVar[float64](db, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound, "no silent default without the default variant")

	require.NoError(t, db.Set("half", 0.5))
	_, err = EvalDefaultVar(db, "half", 1)
	assert.ErrorIs(t, err, errs.ErrConfiguration, "only absence selects the default")
}

func TestPrefixed(t *testing.T) {
	db := New()
	require.NoError(t, db.Set("bunkerLength", 12))
	v, err := EvalVar[float64](Prefixed(db, "bunker"), "Length")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, v, 1e-12)
	_, err = Prefixed(db, "pipe").Value("Length")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestExpressionErrors(t *testing.T) {
	db := New()
	require.NoError(t, db.Set("a", 1))
	tests := []struct {
		name string
		expr string
	}{
		{"empty", "  "},
		{"unbalanced", "(+ a 1"},
		{"undefined", "(* 2 nosuch)"},
		{"not a number", `"text"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.SetExpr("x", tt.expr)
			assert.ErrorIs(t, err, errs.ErrConfiguration)
			assert.False(t, db.Has("x"))
		})
	}
	assert.ErrorIs(t, db.Set("bad-name", 1), errs.ErrConfiguration)
}

func TestReservedNames(t *testing.T) {
	db := New()
	for _, name := range []string{"def", "let", "len", "isnan", "pretty"} {
		t.Run(name, func(t *testing.T) {
			err := db.Set(name, 1)
			require.ErrorIs(t, err, errs.ErrConfiguration)
			assert.Contains(t, err.Error(), "reserved")
			assert.False(t, db.Has(name))
		})
	}
	require.NoError(t, db.Set("definition", 2))
	v, err := db.Eval("(* definition 2)")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestEvalTimeout(t *testing.T) {
	db := New()
	db.Timeout = time.Nanosecond
	err := db.SetExpr("x", "(+ 1 2)")
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Contains(t, err.Error(), "did not finish")
	assert.False(t, db.Has("x"))

	db.Timeout = 0
	v, err := db.Eval("(* 2 3.5)")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, v, 1e-12)
}

func TestLoadYAML(t *testing.T) {
	src := `
bunkerLength: 10
bunkerWall: 0.5
bunkerOuter: "(+ bunkerLength (* 2 bunkerWall))"
pipeRadius: 0.25
`
	db := New()
	require.NoError(t, db.LoadYAML(strings.NewReader(src)))
	assert.Equal(t, []string{"bunkerLength", "bunkerWall", "bunkerOuter", "pipeRadius"}, db.Names())
	v, err := db.Value("bunkerOuter")
	require.NoError(t, err)
	assert.InDelta(t, 11.0, v, 1e-12)

	require.NoError(t, New().LoadYAML(strings.NewReader("")))

	err = New().LoadYAML(strings.NewReader("- 1\n- 2\n"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	err = New().LoadYAML(strings.NewReader("a: [1, 2]\n"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	err = New().LoadYAML(strings.NewReader("a: \"(+ b 1)\"\nb: 2\n"))
	assert.ErrorIs(t, err, errs.ErrConfiguration, "expressions only see earlier variables")
}
