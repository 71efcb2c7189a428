package graph

import "github.com/brensch/speed/game"

// NumEdgeSlots is the size of a node's edge table:
// 4 directions × 2 jump states × MaxSpeed speeds.
const NumEdgeSlots = 4 * 2 * game.MaxSpeed

// Index maps an edge description to its slot in a node's edge table.
func Index(dir game.Direction, jump bool, speed int) int {
	i := int(dir)
	if jump {
		i += 1 << 2
	}
	return i + (speed-1)<<3
}

// pathOffsets returns the step multiples of the direction vector a move
// covers. Jumping moves faster than 2 only touch their first and last cell.
func pathOffsets(jump bool, speed int) []int {
	if jump && speed > 2 {
		return []int{1, speed}
	}
	out := make([]int, speed)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// affected lists, for a displacement from an occupied cell to a potential
// edge start, every slot of that start whose path covers the occupied cell.
type affected struct {
	offset game.Vector
	slots  []int
}

// affectedEdges is computed once and only ever read.
var affectedEdges = buildAffectedEdges()

func buildAffectedEdges() []affected {
	out := make([]affected, 0, 4*game.MaxSpeed)
	for _, dir := range game.Directions {
		for k := 1; k <= game.MaxSpeed; k++ {
			entry := affected{offset: dir.Vector().Scale(-k)}
			for _, jump := range [2]bool{true, false} {
				for speed := k; speed <= game.MaxSpeed; speed++ {
					for _, step := range pathOffsets(jump, speed) {
						if step == k {
							entry.slots = append(entry.slots, Index(dir, jump, speed))
							break
						}
					}
				}
			}
			out = append(out, entry)
		}
	}
	return out
}
