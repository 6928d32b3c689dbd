package ai

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/m-mizutani/goerr/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
)

//go:embed configs/*.hcl
var embeddedConfigs embed.FS

// GlobalLibrary provides the routines bundled with the binary.
var GlobalLibrary = MustLoadLibrary()

// Routine is a named, immutable list of task definitions.
type Routine struct {
	Name  string
	Loop  bool
	Tasks []Definition
}

// Library stores routines by lowercase name.
type Library struct {
	mu       sync.RWMutex
	routines map[string]Routine
}

func NewLibrary() *Library {
	return &Library{routines: make(map[string]Routine)}
}

// MustLoadLibrary loads the embedded routines or panics on failure.
func MustLoadLibrary() *Library {
	lib, err := LoadLibrary()
	if err != nil {
		panic(fmt.Errorf("ai: load library: %w", err))
	}
	return lib
}

// LoadLibrary parses the embedded routine files.
func LoadLibrary() (*Library, error) {
	lib := NewLibrary()
	entries, err := fs.ReadDir(embeddedConfigs, "configs")
	if err != nil {
		return nil, goerr.Wrap(err, "read embedded routines")
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".hcl" {
			continue
		}
		data, err := fs.ReadFile(embeddedConfigs, "configs/"+entry.Name())
		if err != nil {
			return nil, goerr.Wrap(err, "read embedded routine file", goerr.V("file", entry.Name()))
		}
		if err := lib.Parse(data, entry.Name()); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// LoadPaths adds routines from .hcl files and directories. Later
// definitions replace earlier routines with the same name.
func (l *Library) LoadPaths(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return goerr.Wrap(err, "stat routine path", goerr.V("path", path))
		}
		files := []string{path}
		if info.IsDir() {
			files, err = filepath.Glob(filepath.Join(path, "*.hcl"))
			if err != nil {
				return goerr.Wrap(err, "list routine files", goerr.V("path", path))
			}
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return goerr.Wrap(err, "read routine file", goerr.V("file", file))
			}
			if err := l.Parse(data, file); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parse decodes one routine file and adds its routines.
func (l *Library) Parse(src []byte, filename string) error {
	routines, err := ParseRoutines(src, filename)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range routines {
		l.routines[routineKey(r.Name)] = r
	}
	return nil
}

// Routine returns a copy of the named routine.
func (l *Library) Routine(name string) (Routine, bool) {
	if l == nil {
		return Routine{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.routines[routineKey(name)]
	if !ok {
		return Routine{}, false
	}
	r.Tasks = slices.Clone(r.Tasks)
	return r, true
}

// Names lists the routines in sorted order.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.routines))
	for _, r := range l.routines {
		names = append(names, r.Name)
	}
	slices.Sort(names)
	return names
}

func routineKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type routineFile struct {
	Routines []*routineBlock `hcl:"routine,block"`
}

type routineBlock struct {
	Name  string       `hcl:"name,label"`
	Loop  *bool        `hcl:"loop,optional"`
	Tasks []*taskBlock `hcl:"task,block"`
}

type taskBlock struct {
	Kind string `hcl:"kind,label"`
	Name string `hcl:"name,label"`

	Minutes          *float64       `hcl:"minutes,optional"`
	Target           []float64      `hcl:"target,optional"`
	StoppingDistance *float64       `hcl:"stopping_distance,optional"`
	Recover          *bool          `hcl:"recover,optional"`
	Door             *string        `hcl:"door,optional"`
	Station          *string        `hcl:"station,optional"`
	Stat             *string        `hcl:"stat,optional"`
	Op               *string        `hcl:"op,optional"`
	Threshold        hcl.Expression `hcl:"threshold,optional"`
	RecheckMinutes   *float64       `hcl:"recheck_minutes,optional"`
	Windows          []*windowBlock `hcl:"window,block"`
	Tasks            []*taskBlock   `hcl:"task,block"`
}

type windowBlock struct {
	Start int `hcl:"start"`
	End   int `hcl:"end"`
}

// ParseRoutines decodes routine blocks from HCL source.
func ParseRoutines(src []byte, filename string) ([]Routine, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, goerr.Wrap(diags, "parse routine file", goerr.V("file", filename))
	}
	var root routineFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, goerr.Wrap(diags, "decode routine file", goerr.V("file", filename))
	}

	routines := make([]Routine, 0, len(root.Routines))
	seen := make(map[string]struct{}, len(root.Routines))
	for _, block := range root.Routines {
		key := routineKey(block.Name)
		if key == "" {
			return nil, goerr.Wrap(ErrInvalidDefinition, "routine has no name", goerr.V("file", filename))
		}
		if _, dup := seen[key]; dup {
			return nil, goerr.Wrap(ErrInvalidDefinition, "duplicate routine", goerr.V("file", filename), goerr.V("routine", block.Name))
		}
		seen[key] = struct{}{}

		r := Routine{Name: block.Name, Loop: block.Loop != nil && *block.Loop}
		for i, tb := range block.Tasks {
			def, err := decodeTask(tb)
			if err != nil {
				return nil, goerr.Wrap(err, "decode task", goerr.V("file", filename), goerr.V("routine", block.Name), goerr.V("index", i))
			}
			r.Tasks = append(r.Tasks, def)
		}
		routines = append(routines, r)
	}
	return routines, nil
}

func decodeTask(tb *taskBlock) (Definition, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(tb.Kind)))
	switch kind {
	case KindWait:
		if tb.Minutes == nil {
			return nil, missingAttr(tb, "minutes")
		}
		return WaitDef{Name: tb.Name, Minutes: *tb.Minutes}, nil

	case KindMoveTo:
		if len(tb.Target) < 2 || len(tb.Target) > 3 {
			return nil, goerr.Wrap(ErrInvalidDefinition, "target must be [x, z] or [x, y, z]", goerr.V("task", tb.Name))
		}
		def := MoveToDef{Name: tb.Name, Target: vecFrom(tb.Target)}
		if tb.StoppingDistance != nil {
			def.StoppingDistance = *tb.StoppingDistance
		}
		if tb.Recover != nil && *tb.Recover {
			cfg := nav.DefaultStuckConfig()
			def.Recovery = &cfg
		}
		return def, nil

	case KindDoorToggle:
		if tb.Door == nil {
			return nil, missingAttr(tb, "door")
		}
		return DoorToggleDef{Name: tb.Name, Door: *tb.Door}, nil

	case KindInteract:
		if tb.Station == nil {
			return nil, missingAttr(tb, "station")
		}
		return InteractDef{Name: tb.Name, Target: *tb.Station}, nil

	case KindEat:
		if tb.Stat == nil {
			return nil, missingAttr(tb, "stat")
		}
		threshold, err := decodeThreshold(tb.Threshold)
		if err != nil {
			return nil, err
		}
		if threshold.Stat != "" || threshold.program != nil {
			return nil, goerr.Wrap(ErrInvalidDefinition, "eat threshold must be a number", goerr.V("task", tb.Name))
		}
		return EatDef{Name: tb.Name, Stat: *tb.Stat, Threshold: threshold.Value}, nil

	case KindConditional:
		cond, err := decodeCondition(tb)
		if err != nil {
			return nil, err
		}
		if len(tb.Tasks) != 1 {
			return nil, goerr.Wrap(ErrInvalidDefinition, "conditional needs exactly one nested task", goerr.V("task", tb.Name), goerr.V("count", len(tb.Tasks)))
		}
		child, err := decodeTask(tb.Tasks[0])
		if err != nil {
			return nil, err
		}
		return ConditionalDef{Name: tb.Name, Condition: cond, Child: child}, nil

	case KindConditionalSequence:
		cond, err := decodeCondition(tb)
		if err != nil {
			return nil, err
		}
		children, err := decodeChildren(tb.Tasks)
		if err != nil {
			return nil, err
		}
		return ConditionalSequenceDef{Name: tb.Name, Condition: cond, Children: children}, nil

	case KindScheduledWindow:
		if tb.RecheckMinutes == nil {
			return nil, missingAttr(tb, "recheck_minutes")
		}
		if len(tb.Tasks) != 1 {
			return nil, goerr.Wrap(ErrInvalidDefinition, "scheduled window needs exactly one fill task", goerr.V("task", tb.Name))
		}
		fill, err := decodeTask(tb.Tasks[0])
		if err != nil {
			return nil, err
		}
		def := ScheduledWindowDef{Name: tb.Name, RecheckMinutes: *tb.RecheckMinutes, Fill: fill}
		for _, w := range tb.Windows {
			window := Window{Start: w.Start, End: w.End}
			if err := window.validate(); err != nil {
				return nil, goerr.Wrap(err, "window", goerr.V("task", tb.Name))
			}
			def.Windows = append(def.Windows, window)
		}
		if len(def.Windows) == 0 {
			return nil, missingAttr(tb, "window")
		}
		return def, nil
	}
	return nil, goerr.Wrap(ErrUnknownKind, "unknown task kind", goerr.V("kind", tb.Kind), goerr.V("task", tb.Name))
}

func decodeChildren(blocks []*taskBlock) ([]Definition, error) {
	out := make([]Definition, 0, len(blocks))
	for _, tb := range blocks {
		def, err := decodeTask(tb)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func decodeCondition(tb *taskBlock) (Condition, error) {
	if tb.Stat == nil {
		return Condition{}, missingAttr(tb, "stat")
	}
	if tb.Op == nil {
		return Condition{}, missingAttr(tb, "op")
	}
	op, err := ParseOperator(*tb.Op)
	if err != nil {
		return Condition{}, err
	}
	threshold, err := decodeThreshold(tb.Threshold)
	if err != nil {
		return Condition{}, goerr.Wrap(err, "threshold", goerr.V("task", tb.Name))
	}
	return Condition{Stat: *tb.Stat, Op: op, Threshold: threshold}, nil
}

// decodeThreshold accepts a number, an expression string or an object
// { stat, multiplier, offset }.
func decodeThreshold(expr hcl.Expression) (Threshold, error) {
	if expr == nil {
		return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "missing threshold")
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return Threshold{}, goerr.Wrap(diags, "evaluate threshold")
	}
	if v.IsNull() {
		return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "missing threshold")
	}
	if !v.IsWhollyKnown() {
		return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "threshold must be a constant")
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return LiteralThreshold(f), nil
	case ty.Equals(cty.String):
		return CompileThreshold(v.AsString())
	case ty.IsObjectType():
		if !ty.HasAttribute("stat") || !ty.AttributeType("stat").Equals(cty.String) {
			return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "threshold object needs a stat string")
		}
		multiplier, err := objectNumber(v, "multiplier", 1)
		if err != nil {
			return Threshold{}, err
		}
		offset, err := objectNumber(v, "offset", 0)
		if err != nil {
			return Threshold{}, err
		}
		stat := v.GetAttr("stat").AsString()
		if _, ok := actor.ParseStat(stat); !ok {
			return Threshold{}, goerr.Wrap(ErrUnknownStat, "threshold object stat", goerr.V("stat", stat))
		}
		return StatThreshold(stat, multiplier, offset), nil
	}
	return Threshold{}, goerr.Wrap(ErrInvalidDefinition, "unsupported threshold type", goerr.V("type", ty.FriendlyName()))
}

func objectNumber(v cty.Value, name string, fallback float64) (float64, error) {
	if !v.Type().HasAttribute(name) {
		return fallback, nil
	}
	attr := v.GetAttr(name)
	if attr.IsNull() {
		return fallback, nil
	}
	if !attr.Type().Equals(cty.Number) {
		return 0, goerr.Wrap(ErrInvalidDefinition, "threshold attribute must be a number", goerr.V("attribute", name))
	}
	f, _ := attr.AsBigFloat().Float64()
	return f, nil
}

func missingAttr(tb *taskBlock, name string) error {
	return goerr.Wrap(ErrInvalidDefinition, "missing attribute",
		goerr.V("attribute", name), goerr.V("kind", tb.Kind), goerr.V("task", tb.Name))
}

func vecFrom(values []float64) actor.Vec3 {
	if len(values) == 2 {
		return actor.Vec3{X: values[0], Z: values[1]}
	}
	return actor.Vec3{X: values[0], Y: values[1], Z: values[2]}
}
