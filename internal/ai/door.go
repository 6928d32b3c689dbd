package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"
)

// DoorToggle toggles a door once and then waits out its open duration.
// WaypointIndex is 1 once the toggle happened, so a restore never toggles
// twice.
type DoorToggle struct {
	progress
	doorID string
	door   Door
}

func NewDoorToggle(name, doorID string, door Door) *DoorToggle {
	return &DoorToggle{progress: progress{name: name}, doorID: doorID, door: door}
}

func (d *DoorToggle) Kind() Kind { return KindDoorToggle }

func (d *DoorToggle) DoorID() string { return d.doorID }

func (d *DoorToggle) Execute(env *Env) (bt.Status, error) {
	if d.complete {
		return bt.Success, nil
	}
	if d.door == nil {
		return d.finish(goerr.Wrap(ErrMissingCapability, "door is not bound", goerr.V("door", d.doorID)))
	}
	if d.waypoint == 0 {
		d.door.Toggle()
		d.waypoint = 1
	}
	if env != nil && env.Delta > 0 {
		d.elapsed += env.Delta
	}
	if d.elapsed+timeEpsilon >= d.door.OpenDuration() {
		return d.finish(nil)
	}
	return bt.Running, nil
}

func (d *DoorToggle) ResetTask() { d.resetProgress() }

func (d *DoorToggle) GetState() TaskState { return d.captureState(KindDoorToggle) }

func (d *DoorToggle) SetState(s TaskState) { d.applyState(s) }
