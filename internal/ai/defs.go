package ai

import (
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
)

// Definition is an immutable task template. Definitions are shared freely
// between planners; each planner instantiates its own Task graph from them.
type Definition interface {
	Kind() Kind
	Label() string
	instantiate(r Resolver) (Task, error)
}

type WaitDef struct {
	Name    string
	Minutes float64
}

func (d WaitDef) Kind() Kind    { return KindWait }
func (d WaitDef) Label() string { return d.Name }
func (d WaitDef) instantiate(Resolver) (Task, error) {
	if d.Minutes < 0 {
		return nil, goerr.Wrap(ErrInvalidDefinition, "negative wait", goerr.V("minutes", d.Minutes))
	}
	return NewWait(d.Name, d.Minutes), nil
}

type MoveToDef struct {
	Name             string
	Target           actor.Vec3
	StoppingDistance float64
	// Recovery enables stuck recovery when set.
	Recovery *nav.StuckConfig
}

func (d MoveToDef) Kind() Kind    { return KindMoveTo }
func (d MoveToDef) Label() string { return d.Name }
func (d MoveToDef) instantiate(Resolver) (Task, error) {
	if d.StoppingDistance < 0 {
		return nil, goerr.Wrap(ErrInvalidDefinition, "negative stopping distance", goerr.V("stop", d.StoppingDistance))
	}
	var recovery *nav.StuckRecovery
	if d.Recovery != nil {
		recovery = nav.NewStuckRecovery(*d.Recovery)
	}
	return NewMoveTo(d.Name, d.Target, d.StoppingDistance, recovery), nil
}

type DoorToggleDef struct {
	Name string
	Door string
}

func (d DoorToggleDef) Kind() Kind    { return KindDoorToggle }
func (d DoorToggleDef) Label() string { return d.Name }
func (d DoorToggleDef) instantiate(r Resolver) (Task, error) {
	if r == nil {
		return nil, goerr.Wrap(ErrMissingCapability, "no resolver for door", goerr.V("door", d.Door))
	}
	door, ok := r.Door(d.Door)
	if !ok || door == nil {
		return nil, goerr.Wrap(ErrInvalidDefinition, "unknown door", goerr.V("door", d.Door))
	}
	return NewDoorToggle(d.Name, d.Door, door), nil
}

type InteractDef struct {
	Name   string
	Target string
}

func (d InteractDef) Kind() Kind    { return KindInteract }
func (d InteractDef) Label() string { return d.Name }
func (d InteractDef) instantiate(r Resolver) (Task, error) {
	if r == nil {
		return nil, goerr.Wrap(ErrMissingCapability, "no resolver for interaction", goerr.V("target", d.Target))
	}
	target, ok := r.Interaction(d.Target)
	if !ok || target == nil {
		return nil, goerr.Wrap(ErrInvalidDefinition, "unknown interaction target", goerr.V("target", d.Target))
	}
	return NewInteract(d.Name, d.Target, target), nil
}

type ConditionalDef struct {
	Name      string
	Condition Condition
	Child     Definition
}

func (d ConditionalDef) Kind() Kind    { return KindConditional }
func (d ConditionalDef) Label() string { return d.Name }
func (d ConditionalDef) instantiate(r Resolver) (Task, error) {
	if err := d.Condition.validate(); err != nil {
		return nil, err
	}
	if d.Child == nil {
		return nil, goerr.Wrap(ErrInvalidDefinition, "conditional has no child")
	}
	child, err := d.Child.instantiate(r)
	if err != nil {
		err = goerr.Wrap(err, "conditional child", goerr.V("child", d.Child.Label()))
		if child == nil {
			return nil, err
		}
	}
	return NewConditional(d.Name, d.Condition, child), err
}

// ConditionalSequenceDef instantiates every child. Unresolvable children
// become empty slots so the saved state keeps its shape; the sequence is
// still returned, together with the joined child errors.
type ConditionalSequenceDef struct {
	Name      string
	Condition Condition
	Children  []Definition
}

func (d ConditionalSequenceDef) Kind() Kind    { return KindConditionalSequence }
func (d ConditionalSequenceDef) Label() string { return d.Name }
func (d ConditionalSequenceDef) instantiate(r Resolver) (Task, error) {
	if err := d.Condition.validate(); err != nil {
		return nil, err
	}
	children := make([]Task, len(d.Children))
	childErrs := make([]error, len(d.Children))
	var errs []error
	for i, def := range d.Children {
		if def == nil {
			continue
		}
		child, err := def.instantiate(r)
		if err != nil {
			err = goerr.Wrap(err, "sequence child", goerr.V("index", i), goerr.V("child", def.Label()))
			childErrs[i] = err
			errs = append(errs, err)
		}
		children[i] = child
	}
	seq := NewConditionalSequence(d.Name, d.Condition, children)
	seq.childErrs = childErrs
	return seq, errors.Join(errs...)
}

type ScheduledWindowDef struct {
	Name           string
	Windows        []Window
	RecheckMinutes float64
	Fill           Definition
}

func (d ScheduledWindowDef) Kind() Kind    { return KindScheduledWindow }
func (d ScheduledWindowDef) Label() string { return d.Name }
func (d ScheduledWindowDef) instantiate(r Resolver) (Task, error) {
	if len(d.Windows) == 0 {
		return nil, goerr.Wrap(ErrInvalidDefinition, "scheduled window has no windows")
	}
	for _, w := range d.Windows {
		if err := w.validate(); err != nil {
			return nil, err
		}
	}
	if d.RecheckMinutes <= 0 {
		return nil, goerr.Wrap(ErrInvalidDefinition, "recheck interval must be positive", goerr.V("minutes", d.RecheckMinutes))
	}
	if d.Fill == nil {
		return nil, goerr.Wrap(ErrInvalidDefinition, "scheduled window has no fill task")
	}
	fill, err := d.Fill.instantiate(r)
	if err != nil {
		err = goerr.Wrap(err, "scheduled window fill", goerr.V("fill", d.Fill.Label()))
		if fill == nil {
			return nil, err
		}
	}
	return NewScheduledWindow(d.Name, d.Windows, d.RecheckMinutes, fill), err
}

type EatDef struct {
	Name      string
	Stat      string
	Threshold float64
}

func (d EatDef) Kind() Kind    { return KindEat }
func (d EatDef) Label() string { return d.Name }
func (d EatDef) instantiate(Resolver) (Task, error) {
	if strings.TrimSpace(d.Stat) == "" {
		return nil, goerr.Wrap(ErrInvalidDefinition, "eat has no stat")
	}
	return NewEat(d.Name, d.Stat, d.Threshold), nil
}

// Instantiate builds a private task graph for one planner. A definition that
// cannot be built leaves a nil slot and an error wrapping ErrTaskSkipped, so
// indices keep matching the definition list. A composite whose children only
// partly resolved keeps its slot and still reports the error.
func Instantiate(defs []Definition, r Resolver) ([]Task, []error) {
	tasks, slotErrs := instantiateSlots(defs, r)
	var errs []error
	for _, err := range slotErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return tasks, errs
}

// instantiateSlots is Instantiate with errors aligned to the slots.
func instantiateSlots(defs []Definition, r Resolver) ([]Task, []error) {
	out := make([]Task, len(defs))
	errs := make([]error, len(defs))
	for i, def := range defs {
		if def == nil {
			errs[i] = goerr.Wrap(ErrTaskSkipped, "nil definition", goerr.V("index", i))
			continue
		}
		task, err := def.instantiate(r)
		if err != nil {
			errs[i] = goerr.Wrap(ErrTaskSkipped, err.Error(),
				goerr.V("index", i), goerr.V("kind", def.Kind()), goerr.V("name", def.Label()))
		}
		out[i] = task
	}
	return out, errs
}
