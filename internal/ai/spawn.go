package ai

// IdleRoutine is attached to NPCs whose routine cannot be found, so a
// misconfigured NPC idles instead of standing without a planner.
const IdleRoutine = "idle"

// idleMinutes is the wait length of the fallback routine.
const idleMinutes = 15

// SpawnBootstrapConfig captures the data required to attach a library
// routine to a freshly spawned NPC.
type SpawnBootstrapConfig struct {
	Library *Library
	Routine string
	// Planner carries the collaborators. Its Routine, Loop and Tasks are
	// filled from the library.
	Planner PlannerConfig
}

// BootstrapPlanner builds the NPC's planner from its routine. When the
// library is nil or does not know the routine, the NPC gets the looping
// idle routine and found is false.
func BootstrapPlanner(cfg SpawnBootstrapConfig) (planner *Planner, found bool) {
	pc := cfg.Planner
	routine, ok := cfg.Library.Routine(cfg.Routine)
	if !ok {
		routine = idleRoutine()
	}
	pc.Routine = routine.Name
	pc.Loop = routine.Loop
	pc.Tasks = routine.Tasks
	return NewPlanner(pc), ok
}

func idleRoutine() Routine {
	return Routine{
		Name:  IdleRoutine,
		Loop:  true,
		Tasks: []Definition{WaitDef{Name: "idle", Minutes: idleMinutes}},
	}
}
