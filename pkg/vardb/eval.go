package vardb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/carve/pkg/errs"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalTimeout is the default limit for a single expression.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	value float64
	err   error
}

// Eval evaluates expr against the current variables without storing it.
// The evaluation runs in a fresh sandbox; one that panics or outlives the
// timeout is reported as a configuration error. On timeout the sandbox
// goroutine may still be running and its result is discarded.
func (db *DB) Eval(expr string) (float64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, errs.Configf("eval", "empty expression")
	}
	limit := db.Timeout
	if limit <= 0 {
		limit = EvalTimeout
	}

	var src strings.Builder
	for _, name := range db.order {
		fmt.Fprintf(&src, "(def %s %s)\n", name, lispFloat(db.vars[name].value))
	}
	src.WriteString(expr)
	program := src.String()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: errs.Configf("eval", "panic evaluating %q: %v", expr, r)}
			}
		}()
		v, err := run(program, expr)
		ch <- evalResult{value: v, err: err}
	}()

	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.value, res.err
	case <-timer.C:
		return 0, errs.Configf("eval", "%q did not finish within %s", expr, limit)
	}
}

func run(program, expr string) (float64, error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	if err := env.LoadString(program); err != nil {
		return 0, errs.Configf("eval", "parse %q: %s", expr, detail(err))
	}
	out, err := env.Run()
	if err != nil {
		return 0, errs.Configf("eval", "run %q: %s", expr, detail(err))
	}
	switch v := out.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, errs.Configf("eval", "%q gives %s, not a number", expr, out.SexpString(nil))
}

var reservedNames = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range zygo.ReservedWords {
		m[w] = true
	}
	for name := range zygo.SandboxSafeFunctions() {
		m[name] = true
	}
	return m
}()

// reserved reports whether name would shadow a word the sandbox already
// defines.
func reserved(name string) bool { return reservedNames[name] }

// Line numbers in zygomys messages count the definition preamble, so they
// are dropped.
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

func detail(err error) string {
	msg := strings.TrimSpace(err.Error())
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[2])
	}
	return msg
}

// lispFloat renders v so the reader always sees a float literal; integer
// literals would switch zygomys to integer division.
func lispFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
