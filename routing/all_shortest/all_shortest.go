package all_shortest

// Graph is the read-only view the search runs on. Neighbour order decides the
// order in which equal-length paths are produced.
type Graph interface {
	HasNode(id string) bool
	Neighbors(id string) []string
}

// Predecessors runs a breadth-first search from source and returns, for every
// reachable node, the neighbours one hop closer to source in discovery order,
// along with the hop distance of every reachable node
func Predecessors(g Graph, source string) (map[string][]string, map[string]int) {
	predecessors := map[string][]string{source: nil}
	levels := map[string]int{source: 0}

	level := 0
	nextLevel := []string{source}
	for len(nextLevel) > 0 {
		level++
		thisLevel := nextLevel
		nextLevel = nil
		for _, node := range thisLevel {
			for _, neighbor := range g.Neighbors(node) {
				seenLevel, seen := levels[neighbor]
				if !seen {
					predecessors[neighbor] = []string{node}
					levels[neighbor] = level
					nextLevel = append(nextLevel, neighbor)
				} else if seenLevel == level {
					predecessors[neighbor] = append(predecessors[neighbor], node)
				}
			}
		}
	}

	return predecessors, levels
}

// AllShortestPaths returns every minimum-hop path from source to dest.
// Paths come out depth-first from dest over the predecessor lists.
// The result is empty when either endpoint is missing from g, dest is
// unreachable, or source equals dest.
func AllShortestPaths(g Graph, source, dest string) [][]string {
	return ShortestPaths(g, source, dest, 0)
}

// ShortestPaths is AllShortestPaths cut off after the first limit paths.
// A non-positive limit returns them all.
func ShortestPaths(g Graph, source, dest string, limit int) [][]string {
	if source == dest || !g.HasNode(source) || !g.HasNode(dest) {
		return nil
	}

	predecessors, _ := Predecessors(g, source)
	if _, reachable := predecessors[dest]; !reachable {
		return nil
	}
	return findPaths(dest, source, predecessors, limit)
}

func findPaths(node, source string, predecessors map[string][]string, limit int) [][]string {
	var paths [][]string
	full := func() bool { return limit > 0 && len(paths) >= limit }

	stack := []string{node}

	var find func()
	find = func() {
		top := stack[len(stack)-1]
		if top == source { // a path is found
			nodes := make([]string, 0, len(stack))
			for i := len(stack) - 1; i >= 0; i-- {
				nodes = append(nodes, stack[i])
			}
			paths = append(paths, nodes)
			return
		}
		for _, predecessor := range predecessors[top] {
			if full() {
				return
			}
			stack = append(stack, predecessor)
			find()
			stack = stack[:len(stack)-1]
		}
	}
	find()

	return paths
}

// HopCount returns the number of links on path
func HopCount(path []string) int {
	if len(path) == 0 {
		return 0
	}
	return len(path) - 1
}
