package actor

import (
	"sync"
	"sync/atomic"
)

// DefaultSpeed is the walking speed in world units per real second.
const DefaultSpeed = 3.0

// NPC is the reference actor. Stats are local to the NPC and guarded by its
// own mutex so planners on different goroutines never share a stat store.
type NPC struct {
	id     string
	frozen atomic.Bool

	mu       sync.RWMutex
	position Vec3
	speed    float64
	stats    StatSet
	food     []float64
}

// NPCConfig seeds a new NPC.
type NPCConfig struct {
	ID       string
	Position Vec3
	Speed    float64
	Stats    StatSet
	Food     []float64
}

// NewNPC constructs an NPC from cfg.
func NewNPC(cfg NPCConfig) *NPC {
	speed := cfg.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	npc := &NPC{
		id:       cfg.ID,
		position: cfg.Position,
		speed:    speed,
		food:     append([]float64(nil), cfg.Food...),
	}
	for i, v := range cfg.Stats {
		npc.stats[i] = clampStat(v)
	}
	return npc
}

func (n *NPC) ID() string {
	if n == nil {
		return ""
	}
	return n.id
}

// GetStat implements Actor.
func (n *NPC) GetStat(name string) (float64, bool) {
	stat, ok := ParseStat(name)
	if !ok || n == nil {
		return 0, false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats[stat], true
}

// SetStat overwrites a stat value.
func (n *NPC) SetStat(stat Stat, value float64) {
	if n == nil || stat >= StatCount {
		return
	}
	n.mu.Lock()
	n.stats[stat] = clampStat(value)
	n.mu.Unlock()
}

// AddStat implements StatWriter.
func (n *NPC) AddStat(name string, delta float64) bool {
	stat, ok := ParseStat(name)
	if !ok || n == nil {
		return false
	}
	n.mu.Lock()
	n.stats[stat] = clampStat(n.stats[stat] + delta)
	n.mu.Unlock()
	return true
}

// Stats returns a copy of every stat.
func (n *NPC) Stats() StatSet {
	if n == nil {
		return StatSet{}
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}

// Decay lowers every need by rate*dt, used by the world between ticks.
func (n *NPC) Decay(rates StatSet, dt float64) {
	if n == nil || dt <= 0 {
		return
	}
	n.mu.Lock()
	for i, rate := range rates {
		if rate == 0 {
			continue
		}
		n.stats[i] = clampStat(n.stats[i] - rate*dt)
	}
	n.mu.Unlock()
}

func (n *NPC) Position() Vec3 {
	if n == nil {
		return Vec3{}
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

func (n *NPC) SetPosition(pos Vec3) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.position = pos
	n.mu.Unlock()
}

func (n *NPC) Speed() float64 {
	if n == nil {
		return 0
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.speed
}

// IsFrozen implements Actor.
func (n *NPC) IsFrozen() bool {
	return n != nil && n.frozen.Load()
}

// SetFrozen pauses the NPC's planner at the next task boundary.
func (n *NPC) SetFrozen(frozen bool) {
	if n == nil {
		return
	}
	n.frozen.Store(frozen)
}

// TakeFood implements Pantry, consuming items in stock order.
func (n *NPC) TakeFood() (float64, bool) {
	if n == nil {
		return 0, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.food) == 0 {
		return 0, false
	}
	item := n.food[0]
	n.food = n.food[1:]
	return item, true
}

// StockFood appends items to the pantry.
func (n *NPC) StockFood(items ...float64) {
	if n == nil || len(items) == 0 {
		return
	}
	n.mu.Lock()
	n.food = append(n.food, items...)
	n.mu.Unlock()
}

// Food returns a copy of the pantry contents.
func (n *NPC) Food() []float64 {
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]float64(nil), n.food...)
}

// SetFood replaces the pantry contents, used when loading a save.
func (n *NPC) SetFood(items []float64) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.food = append([]float64(nil), items...)
	n.mu.Unlock()
}
