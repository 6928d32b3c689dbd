package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatIsCaseInsensitive(t *testing.T) {
	stat, ok := ParseStat(" Fullness ")
	require.True(t, ok)
	require.Equal(t, StatFullness, stat)

	_, ok = ParseStat("charisma")
	require.False(t, ok)
}

func TestNPCGetStatReportsUnknownNames(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada"})
	npc.SetStat(StatEnergy, 42)

	v, ok := npc.GetStat("energy")
	require.True(t, ok)
	require.Equal(t, 42.0, v)

	_, ok = npc.GetStat("charisma")
	require.False(t, ok)
}

func TestNPCAddStatClamps(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada"})
	require.True(t, npc.AddStat("fullness", 150))
	v, _ := npc.GetStat("fullness")
	require.Equal(t, StatMax, v)

	require.True(t, npc.AddStat("fullness", -500))
	v, _ = npc.GetStat("fullness")
	require.Zero(t, v)

	require.False(t, npc.AddStat("charisma", 1))
}

func TestNPCPantryConsumesInOrder(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada", Food: []float64{10, 20}})
	first, ok := npc.TakeFood()
	require.True(t, ok)
	require.Equal(t, 10.0, first)

	npc.StockFood(30)
	require.Equal(t, []float64{20, 30}, npc.Food())

	npc.TakeFood()
	npc.TakeFood()
	_, ok = npc.TakeFood()
	require.False(t, ok)
}

func TestNPCDecay(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada", Stats: StatSet{StatFullness: 50, StatEnergy: 10}})
	var rates StatSet
	rates[StatFullness] = 2
	rates[StatEnergy] = 20
	npc.Decay(rates, 1)

	stats := npc.Stats()
	require.Equal(t, 48.0, stats[StatFullness])
	require.Zero(t, stats[StatEnergy])
}

func TestNPCConcurrentStatAccess(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				npc.AddStat("mood", 0.01)
				npc.GetStat("mood")
			}
		}()
	}
	wg.Wait()
	v, _ := npc.GetStat("mood")
	require.InDelta(t, 8.0, v, 1e-6)
}

func TestStatSetMapRoundTrip(t *testing.T) {
	set := StatSet{StatFullness: 10, StatMood: 70}
	restored := StatSetFromMap(set.Map())
	require.Equal(t, set, restored)
}

func TestVec3Helpers(t *testing.T) {
	a := Vec3{X: 3, Y: 1, Z: 4}
	require.Equal(t, 5.0, a.PlanarDist(Vec3{Y: 9}))
	require.False(t, a.IsZero())
	require.True(t, Vec3{}.IsZero())
}

func TestNPCSetFoodReplacesPantry(t *testing.T) {
	npc := NewNPC(NPCConfig{ID: "ada", Food: []float64{1, 2}})
	items := []float64{7}
	npc.SetFood(items)
	items[0] = 99

	require.Equal(t, []float64{7}, npc.Food())
}
