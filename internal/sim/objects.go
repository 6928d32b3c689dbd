package sim

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

// DefaultStationReach is how close an actor must stand to use a station.
const DefaultStationReach = 2.5

// DoorSpec places a door.
type DoorSpec struct {
	ID       string
	Position actor.Vec3
	// OpenSeconds is how long the door takes to swing, in real seconds.
	OpenSeconds float64
	// AutoCloseSeconds closes an open door after this long. Zero keeps it open.
	AutoCloseSeconds float64
	Open             bool
}

// Door is a toggleable world door. Closed doors block navigation.
type Door struct {
	id        string
	pos       actor.Vec3
	duration  float64
	autoClose float64

	mu       sync.Mutex
	open     bool
	openedAt float64
	toggles  uint64
}

func newDoor(spec DoorSpec) *Door {
	return &Door{
		id:        spec.ID,
		pos:       spec.Position,
		duration:  max(spec.OpenSeconds, 0),
		autoClose: max(spec.AutoCloseSeconds, 0),
		open:      spec.Open,
	}
}

func (d *Door) ID() string { return d.id }

func (d *Door) Position() actor.Vec3 { return d.pos }

// Toggle implements ai.Door.
func (d *Door) Toggle() {
	d.mu.Lock()
	d.open = !d.open
	d.openedAt = 0
	d.toggles++
	d.mu.Unlock()
}

// IsOpen implements ai.Door.
func (d *Door) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// OpenDuration implements ai.Door.
func (d *Door) OpenDuration() float64 {
	return d.duration
}

// Toggles counts every toggle since the door was created.
func (d *Door) Toggles() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.toggles
}

func (d *Door) setOpen(open bool) {
	d.mu.Lock()
	d.open = open
	d.openedAt = 0
	d.mu.Unlock()
}

func (d *Door) advance(dt float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open || d.autoClose <= 0 {
		return
	}
	d.openedAt += dt
	if d.openedAt >= d.autoClose {
		d.open = false
		d.openedAt = 0
	}
}

// StationSpec places an interaction station.
type StationSpec struct {
	ID       string
	Position actor.Vec3
	// Minutes is the in-world length of one interaction.
	Minutes float64
	Reach   float64
	// Effects are stat deltas applied to the actor when an interaction ends.
	Effects map[string]float64
}

// Station runs interactions for actors standing within reach. Interactions
// progress in virtual time as the world ticks.
type Station struct {
	id      string
	pos     actor.Vec3
	seconds float64
	reach   float64
	effects map[string]float64

	mu        sync.Mutex
	jobs      []*stationJob
	completed uint64
}

type stationJob struct {
	ctx       context.Context
	actor     actor.Actor
	remaining float64
	done      chan error
}

func newStation(spec StationSpec) *Station {
	reach := spec.Reach
	if reach <= 0 {
		reach = DefaultStationReach
	}
	effects := make(map[string]float64, len(spec.Effects))
	for k, v := range spec.Effects {
		effects[k] = v
	}
	return &Station{
		id:      spec.ID,
		pos:     spec.Position,
		seconds: max(spec.Minutes, 0) * 60,
		reach:   reach,
		effects: effects,
	}
}

func (s *Station) ID() string { return s.id }

func (s *Station) Position() actor.Vec3 { return s.pos }

// ExecuteInteraction implements ai.InteractionTarget. An actor out of reach
// gets an error straight away.
func (s *Station) ExecuteInteraction(ctx context.Context, a actor.Actor) <-chan error {
	done := make(chan error, 1)
	if a == nil {
		done <- goerr.New("no actor", goerr.V("station", s.id))
		close(done)
		return done
	}
	if dist := a.Position().PlanarDist(s.pos); dist > s.reach {
		done <- goerr.New("out of reach", goerr.V("station", s.id), goerr.V("actor", a.ID()), goerr.V("distance", dist))
		close(done)
		return done
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, &stationJob{ctx: ctx, actor: a, remaining: s.seconds, done: done})
	s.mu.Unlock()
	return done
}

// Busy reports the number of running interactions.
func (s *Station) Busy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Completed counts interactions that ended successfully.
func (s *Station) Completed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// cancel drops the running jobs of actorID without applying their effects.
func (s *Station) cancel(actorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.jobs[:0]
	dropped := 0
	for _, job := range s.jobs {
		if job.actor.ID() != actorID {
			kept = append(kept, job)
			continue
		}
		job.done <- goerr.New("interaction cancelled", goerr.V("station", s.id), goerr.V("actor", actorID))
		close(job.done)
		dropped++
	}
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = nil
	}
	s.jobs = kept
	return dropped
}

// advance progresses every job by virtualSeconds of in-world time.
func (s *Station) advance(virtualSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.jobs[:0]
	for _, job := range s.jobs {
		if err := job.ctx.Err(); err != nil {
			job.done <- err
			close(job.done)
			continue
		}
		job.remaining -= virtualSeconds
		if job.remaining > 0 {
			kept = append(kept, job)
			continue
		}
		if writer, ok := job.actor.(actor.StatWriter); ok {
			for name, delta := range s.effects {
				writer.AddStat(name, delta)
			}
		}
		s.completed++
		close(job.done)
	}
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = nil
	}
	s.jobs = kept
}
