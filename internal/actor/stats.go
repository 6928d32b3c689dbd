package actor

import "strings"

// Stat enumerates the needs tracked for an NPC.
type Stat uint8

const (
	StatFullness Stat = iota
	StatEnergy
	StatHydration
	StatMood
	StatHealth

	StatCount
)

// StatMax caps every need.
const StatMax = 100.0

var statNames = [StatCount]string{
	StatFullness:  "fullness",
	StatEnergy:    "energy",
	StatHydration: "hydration",
	StatMood:      "mood",
	StatHealth:    "health",
}

// String returns the authoring name of the stat.
func (s Stat) String() string {
	if s >= StatCount {
		return "unknown"
	}
	return statNames[s]
}

// ParseStat resolves an authoring name. Matching is case-insensitive.
func ParseStat(name string) (Stat, bool) {
	name = strings.TrimSpace(name)
	for i, candidate := range statNames {
		if strings.EqualFold(candidate, name) {
			return Stat(i), true
		}
	}
	return StatCount, false
}

// StatSet stores a fixed vector of stat values.
type StatSet [StatCount]float64

// Map converts the set into a name-keyed map for persistence.
func (s StatSet) Map() map[string]float64 {
	out := make(map[string]float64, StatCount)
	for i, v := range s {
		out[Stat(i).String()] = v
	}
	return out
}

// StatSetFromMap builds a set from name-keyed values, ignoring unknown names.
func StatSetFromMap(values map[string]float64) StatSet {
	var set StatSet
	for name, v := range values {
		if stat, ok := ParseStat(name); ok {
			set[stat] = clampStat(v)
		}
	}
	return set
}

func clampStat(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > StatMax {
		return StatMax
	}
	return v
}
