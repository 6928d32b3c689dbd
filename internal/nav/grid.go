// Package nav implements the reference navigation collaborator: an A* grid
// over the X/Z ground plane, a path-following navigator and a stuck recovery
// policy.
package nav

import (
	"container/heap"
	"math"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

const (
	DefaultCellSize    = 1.0
	DefaultAgentRadius = 0.35
)

// Obstacle is an axis-aligned footprint on the ground plane.
type Obstacle struct {
	MinX float64 `json:"minX"`
	MinZ float64 `json:"minZ"`
	MaxX float64 `json:"maxX"`
	MaxZ float64 `json:"maxZ"`
}

// GridConfig describes the walkable area.
type GridConfig struct {
	Width       float64
	Depth       float64
	CellSize    float64
	AgentRadius float64
	Obstacles   []Obstacle
}

type neighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// Grid is an immutable walkability grid. It is safe to share between
// navigators.
type Grid struct {
	cols, rows  int
	cellSize    float64
	agentRadius float64
	width       float64
	depth       float64
	walkable    []bool
}

// NewGrid rasterises the obstacles. A cell is walkable when an agent standing
// at its centre overlaps no obstacle and stays inside the bounds.
func NewGrid(cfg GridConfig) *Grid {
	cellSize := cfg.CellSize
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	radius := cfg.AgentRadius
	if radius < 0 {
		radius = 0
	}
	cols := max(int(math.Ceil(cfg.Width/cellSize)), 1)
	rows := max(int(math.Ceil(cfg.Depth/cellSize)), 1)
	g := &Grid{
		cols:        cols,
		rows:        rows,
		cellSize:    cellSize,
		agentRadius: radius,
		width:       cfg.Width,
		depth:       cfg.Depth,
		walkable:    make([]bool, cols*rows),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cx := (float64(col) + 0.5) * cellSize
			cz := (float64(row) + 0.5) * cellSize
			if cx < radius || cx > cfg.Width-radius || cz < radius || cz > cfg.Depth-radius {
				continue
			}
			blocked := false
			for _, obs := range cfg.Obstacles {
				if circleRectOverlap(cx, cz, radius, obs) {
					blocked = true
					break
				}
			}
			g.walkable[row*cols+col] = !blocked
		}
	}
	return g
}

func circleRectOverlap(cx, cz, radius float64, obs Obstacle) bool {
	nearestX := clamp(cx, obs.MinX, obs.MaxX)
	nearestZ := clamp(cz, obs.MinZ, obs.MaxZ)
	return math.Hypot(cx-nearestX, cz-nearestZ) < radius || (cx >= obs.MinX && cx <= obs.MaxX && cz >= obs.MinZ && cz <= obs.MaxZ)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func (g *Grid) Cols() int         { return g.cols }
func (g *Grid) Rows() int         { return g.rows }
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) inBounds(col, row int) bool {
	return g != nil && col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *Grid) index(col, row int) int {
	return row*g.cols + col
}

// Walkable reports whether the cell containing pos can be stood on.
func (g *Grid) Walkable(pos actor.Vec3) bool {
	col, row, ok := g.locate(pos.X, pos.Z)
	return ok && g.walkable[g.index(col, row)]
}

func (g *Grid) cellCentre(col, row int, y float64) actor.Vec3 {
	return actor.Vec3{
		X: (float64(col) + 0.5) * g.cellSize,
		Y: y,
		Z: (float64(row) + 0.5) * g.cellSize,
	}
}

// locate maps a ground position to its cell. Positions outside the grid are
// not located.
func (g *Grid) locate(x, z float64) (int, int, bool) {
	if g == nil || x < 0 || z < 0 || x > g.width || z > g.depth {
		return 0, 0, false
	}
	col := min(int(x/g.cellSize), g.cols-1)
	row := min(int(z/g.cellSize), g.rows-1)
	return col, row, g.inBounds(col, row)
}

type point struct {
	col int
	row int
}

type blockSet map[int]struct{}

func (b blockSet) has(idx int) bool {
	if b == nil {
		return false
	}
	_, ok := b[idx]
	return ok
}

func (g *Grid) canTraverseDiagonal(current point, delta neighbor, blocked blockSet) bool {
	if !delta.diagonal {
		return true
	}
	hc, hr := current.col+delta.col, current.row
	vc, vr := current.col, current.row+delta.row
	if !g.inBounds(hc, hr) || !g.inBounds(vc, vr) {
		return false
	}
	hIdx, vIdx := g.index(hc, hr), g.index(vc, vr)
	if !g.walkable[hIdx] || !g.walkable[vIdx] {
		return false
	}
	return !blocked.has(hIdx) && !blocked.has(vIdx)
}

// closestWalkable runs a breadth-first search outwards from the cell and
// returns the first free walkable cell together with its ring distance.
func (g *Grid) closestWalkable(col, row int, blocked blockSet) (point, int, bool) {
	if !g.inBounds(col, row) {
		return point{}, 0, false
	}
	type node struct {
		point
		depth int
	}
	visited := map[int]struct{}{g.index(col, row): {}}
	queue := []node{{point: point{col: col, row: row}}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		idx := g.index(current.col, current.row)
		if g.walkable[idx] && !blocked.has(idx) {
			return current.point, current.depth, true
		}
		for _, delta := range neighborOffsets {
			nc, nr := current.col+delta.col, current.row+delta.row
			if !g.inBounds(nc, nr) {
				continue
			}
			nIdx := g.index(nc, nr)
			if _, seen := visited[nIdx]; seen {
				continue
			}
			visited[nIdx] = struct{}{}
			queue = append(queue, node{point: point{col: nc, row: nr}, depth: current.depth + 1})
		}
	}
	return point{}, 0, false
}

// octile distance between two cells.
func heuristic(a, b point) float64 {
	dx := math.Abs(float64(a.col - b.col))
	dy := math.Abs(float64(a.row - b.row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

type pathNode struct {
	point  point
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *Grid) astar(start, goal point, blocked blockSet) ([]point, bool) {
	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{point: start, f: heuristic(start, goal)})
	gScore := map[int]float64{g.index(start.col, start.row): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.point.col, current.point.row)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.point == goal {
			return reconstructPath(current), true
		}
		for _, delta := range neighborOffsets {
			if !g.canTraverseDiagonal(current.point, delta, blocked) {
				continue
			}
			next := point{col: current.point.col + delta.col, row: current.point.row + delta.row}
			if !g.inBounds(next.col, next.row) {
				continue
			}
			idx := g.index(next.col, next.row)
			if !g.walkable[idx] || (blocked.has(idx) && next != goal) {
				continue
			}
			if _, seen := closed[idx]; seen {
				continue
			}
			tentative := current.g + delta.cost
			if prev, ok := gScore[idx]; ok && tentative >= prev {
				continue
			}
			gScore[idx] = tentative
			heap.Push(open, &pathNode{
				point:  next,
				g:      tentative,
				f:      tentative + heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstructPath(end *pathNode) []point {
	var path []point
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (g *Grid) findPath(start, target actor.Vec3, blocked blockSet) ([]actor.Vec3, bool) {
	startCol, startRow, ok := g.locate(start.X, start.Z)
	if !ok {
		return nil, false
	}
	goalCol, goalRow, ok := g.locate(target.X, target.Z)
	if !ok {
		return nil, false
	}
	startPoint := point{col: startCol, row: startRow}
	if idx := g.index(startCol, startRow); !g.walkable[idx] || blocked.has(idx) {
		startPoint, _, ok = g.closestWalkable(startCol, startRow, blocked)
		if !ok {
			return nil, false
		}
	}
	goalIdx := g.index(goalCol, goalRow)
	if !g.walkable[goalIdx] || blocked.has(goalIdx) {
		return nil, false
	}
	nodes, ok := g.astar(startPoint, point{col: goalCol, row: goalRow}, blocked)
	if !ok || len(nodes) == 0 {
		return nil, false
	}
	path := make([]actor.Vec3, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		path = append(path, g.cellCentre(nodes[i].col, nodes[i].row, start.Y))
	}
	target.Y = start.Y
	if len(path) == 0 {
		return []actor.Vec3{target}, true
	}
	// The final cell centre is replaced by the exact target.
	path[len(path)-1] = target
	return path, true
}

func (g *Grid) blockers(positions []actor.Vec3) blockSet {
	if len(positions) == 0 {
		return nil
	}
	blocked := make(blockSet)
	for _, pos := range positions {
		if col, row, ok := g.locate(pos.X, pos.Z); ok {
			blocked[g.index(col, row)] = struct{}{}
		}
	}
	return blocked
}

// PathTravelCost sums the segment lengths from start through path.
func PathTravelCost(start actor.Vec3, path []actor.Vec3) float64 {
	cost := 0.0
	prev := start
	for _, node := range path {
		cost += prev.PlanarDist(node)
		prev = node
	}
	return cost
}

// FindPath plans from start to target avoiding the blocker cells. When the
// target cell itself cannot be reached, nearby alternative goals are scored
// by their offset plus travel cost and the best one is returned as goal.
func (g *Grid) FindPath(start, target actor.Vec3, blockers []actor.Vec3) (path []actor.Vec3, goal actor.Vec3, ok bool) {
	if g == nil {
		return nil, actor.Vec3{}, false
	}
	blocked := g.blockers(blockers)
	target.X = clamp(target.X, 0, g.width)
	target.Z = clamp(target.Z, 0, g.depth)
	if path, ok := g.findPath(start, target, blocked); ok {
		return path, target, true
	}
	step := g.cellSize
	offsets := [...][2]float64{
		{step, 0}, {-step, 0}, {0, step}, {0, -step},
		{step, step}, {step, -step}, {-step, step}, {-step, -step},
		{2 * step, 0}, {-2 * step, 0}, {0, 2 * step}, {0, -2 * step},
	}
	bestScore := math.MaxFloat64
	var bestPath []actor.Vec3
	for _, offset := range offsets {
		alt := target
		alt.X = clamp(target.X+offset[0], 0, g.width)
		alt.Z = clamp(target.Z+offset[1], 0, g.depth)
		if alt.PlanarDist(target) < step*0.5 {
			continue
		}
		candidate, ok := g.findPath(start, alt, blocked)
		if !ok {
			continue
		}
		score := alt.PlanarDist(target) + PathTravelCost(start, candidate)
		if score < bestScore {
			bestScore = score
			bestPath = candidate
			goal = alt
		}
	}
	if len(bestPath) == 0 {
		return nil, actor.Vec3{}, false
	}
	return bestPath, goal, true
}

// NearSurface reports whether pos lies within the grid and a free walkable
// cell is at most tolerance cells away.
func (g *Grid) NearSurface(pos actor.Vec3, tolerance int) bool {
	col, row, ok := g.locate(pos.X, pos.Z)
	if !ok {
		return false
	}
	_, depth, ok := g.closestWalkable(col, row, nil)
	return ok && depth <= tolerance
}
