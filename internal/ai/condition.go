package ai

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/m-mizutani/goerr/v2"
)

// StatEpsilon is the tolerance used by == and != comparisons.
const StatEpsilon = 1e-4

// Operator is a stat comparison operator.
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// ParseOperator validates an operator token.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.TrimSpace(s))
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual:
		return op, nil
	}
	return "", goerr.Wrap(ErrInvalidDefinition, "unknown comparison operator", goerr.V("operator", s))
}

// Compare applies op to a and b. Equality uses StatEpsilon.
func (op Operator) Compare(a, b float64) bool {
	switch op {
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpEqual:
		return math.Abs(a-b) <= StatEpsilon
	case OpNotEqual:
		return math.Abs(a-b) > StatEpsilon
	}
	return false
}

// Threshold is the right-hand side of a condition: a literal Value, a
// linear function of another stat (Multiplier*Stat + Offset) or a compiled
// expression. Compiled programs are immutable and shared between planners.
type Threshold struct {
	Value      float64
	Stat       string
	Multiplier float64
	Offset     float64
	program    *vm.Program
	source     string
}

// LiteralThreshold returns a constant threshold.
func LiteralThreshold(v float64) Threshold {
	return Threshold{Value: v}
}

// StatThreshold returns multiplier*stat+offset.
func StatThreshold(stat string, multiplier, offset float64) Threshold {
	return Threshold{Stat: stat, Multiplier: multiplier, Offset: offset}
}

// exprEnv is the compile-time shape of the expression environment.
func exprEnv(stat func(string) float64, hour int) map[string]any {
	return map[string]any{
		"stat": stat,
		"hour": hour,
	}
}

// CompileThreshold compiles an expression such as `0.5 * stat("energy") + 10`.
// The expression can call stat(name) and read hour.
func CompileThreshold(source string) (Threshold, error) {
	program, err := expr.Compile(source,
		expr.Env(exprEnv(func(string) float64 { return 0 }, 0)),
		expr.AsFloat64(),
	)
	if err != nil {
		return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "compile threshold expression", goerr.V("expr", source), goerr.V("cause", err.Error()))
	}
	return Threshold{program: program, source: source}, nil
}

// Source returns the expression text, if any.
func (t Threshold) Source() string {
	return t.source
}

// String renders the threshold for logs and the CLI.
func (t Threshold) String() string {
	switch {
	case t.program != nil:
		return t.source
	case t.Stat != "":
		return fmt.Sprintf("%g*%s%+g", t.Multiplier, t.Stat, t.Offset)
	default:
		return fmt.Sprintf("%g", t.Value)
	}
}

func (t Threshold) resolve(env *Env) (float64, error) {
	switch {
	case t.program != nil:
		var missing string
		stat := func(name string) float64 {
			v, ok := env.Actor.GetStat(name)
			if !ok && missing == "" {
				missing = name
			}
			return v
		}
		hour := 0
		if env.Clock != nil {
			hour = env.Clock.Hour()
		}
		out, err := expr.Run(t.program, exprEnv(stat, hour))
		if missing != "" {
			return 0, goerr.Wrap(ErrUnknownStat, "threshold expression", goerr.V("stat", missing))
		}
		if err != nil {
			return 0, goerr.Wrap(err, "run threshold expression", goerr.V("expr", t.source))
		}
		switch v := out.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		default:
			return 0, goerr.New("threshold expression is not numeric", goerr.V("expr", t.source), goerr.V("result", out))
		}
	case t.Stat != "":
		v, ok := env.Actor.GetStat(t.Stat)
		if !ok {
			return 0, goerr.Wrap(ErrUnknownStat, "threshold stat", goerr.V("stat", t.Stat))
		}
		return t.Multiplier*v + t.Offset, nil
	default:
		return t.Value, nil
	}
}

// Condition gates Conditional and ConditionalSequence.
type Condition struct {
	Stat      string
	Op        Operator
	Threshold Threshold
}

// Evaluate resolves the stat and threshold against the actor.
func (c Condition) Evaluate(env *Env) (bool, error) {
	if env == nil || env.Actor == nil {
		return false, goerr.Wrap(ErrMissingCapability, "condition requires an actor")
	}
	value, ok := env.Actor.GetStat(c.Stat)
	if !ok {
		return false, goerr.Wrap(ErrUnknownStat, "condition stat", goerr.V("stat", c.Stat))
	}
	threshold, err := c.Threshold.resolve(env)
	if err != nil {
		return false, err
	}
	return c.Op.Compare(value, threshold), nil
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Stat, c.Op, c.Threshold)
}

func (c Condition) validate() error {
	if strings.TrimSpace(c.Stat) == "" {
		return goerr.Wrap(ErrInvalidDefinition, "condition has no stat")
	}
	if _, err := ParseOperator(string(c.Op)); err != nil {
		return err
	}
	return nil
}
