package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
)

// Gate outcomes persisted in TaskState.Phase by the conditional kinds.
const (
	gatePending  = 0
	gatePassed   = 1
	gateRejected = 2
)

// Conditional runs its child only when the condition holds at activation.
// The condition is evaluated once; the outcome survives a restore so a
// resumed child is not re-gated.
type Conditional struct {
	progress
	cond  Condition
	child Task
}

func NewConditional(name string, cond Condition, child Task) *Conditional {
	return &Conditional{progress: progress{name: name}, cond: cond, child: child}
}

func (c *Conditional) Kind() Kind { return KindConditional }

func (c *Conditional) Condition() Condition { return c.cond }

func (c *Conditional) Children() []Task {
	if c.child == nil {
		return nil
	}
	return []Task{c.child}
}

func (c *Conditional) Execute(env *Env) (bt.Status, error) {
	if c.complete {
		return bt.Success, nil
	}
	if c.phase == gatePending {
		pass, err := evaluateGate(env, c.name, c.cond)
		if err != nil {
			return c.finish(err)
		}
		if !pass || c.child == nil {
			c.phase = gateRejected
			return c.finish(nil)
		}
		c.phase = gatePassed
		c.child.ResetTask()
	}
	if c.phase != gatePassed || c.child == nil {
		return c.finish(nil)
	}
	status, err := c.child.Execute(env)
	if status == bt.Running && err == nil {
		return bt.Running, nil
	}
	return c.finish(childResult(status, err, c.child))
}

func (c *Conditional) ResetTask() {
	c.resetProgress()
	if c.child != nil {
		c.child.ResetTask()
	}
}

func (c *Conditional) GetState() TaskState {
	s := c.captureState(KindConditional)
	s.SubStates = captureChildren(c.Children())
	return s
}

func (c *Conditional) SetState(s TaskState) {
	c.applyState(s)
	applyChildren(c.Children(), s.SubStates)
}
