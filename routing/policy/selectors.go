package policy

import (
	"golang.org/x/exp/slices"
)

const (
	LeastUtilized = "least_utilized"
	LoadBalance   = "load_balance"
	Protected     = "protected"

	// DefaultLoadBalancePaths is how many equal-cost paths load balancing exposes
	DefaultLoadBalancePaths = 2
)

// LeastUtilizedSelector returns the single candidate with the lowest summed
// link utilization. The first minimum in candidate order wins ties.
type LeastUtilizedSelector struct{}

func (LeastUtilizedSelector) SelectPaths(view UtilizationView, candidates [][]string) [][]string {
	index := leastUtilizedIndex(view, candidates)
	if index < 0 {
		return nil
	}
	return [][]string{candidates[index]}
}

// LoadBalanceSelector returns the first MaxPaths candidates unchanged, letting
// the caller spread load over equal-cost routes
type LoadBalanceSelector struct {
	MaxPaths int
}

func NewLoadBalanceSelector(maxPaths int) *LoadBalanceSelector {
	if maxPaths <= 0 {
		maxPaths = DefaultLoadBalancePaths
	}
	return &LoadBalanceSelector{MaxPaths: maxPaths}
}

// PathLimit tells the path search it can stop after MaxPaths paths
func (lb *LoadBalanceSelector) PathLimit() int { return lb.MaxPaths }

func (lb *LoadBalanceSelector) SelectPaths(_ UtilizationView, candidates [][]string) [][]string {
	if len(candidates) > lb.MaxPaths {
		return candidates[:lb.MaxPaths]
	}
	return candidates
}

// ProtectedSelector returns the least utilized candidate followed by the first
// other candidate in search order, which serves as a backup
type ProtectedSelector struct{}

func (ProtectedSelector) SelectPaths(view UtilizationView, candidates [][]string) [][]string {
	index := leastUtilizedIndex(view, candidates)
	if index < 0 {
		return nil
	}
	selected := [][]string{candidates[index]}
	for i, candidate := range candidates {
		if i != index && !slices.Equal(candidate, candidates[index]) {
			selected = append(selected, candidate)
			break
		}
	}
	return selected
}

func leastUtilizedIndex(view UtilizationView, candidates [][]string) int {
	best := -1
	var bestUtilization float64
	for i, candidate := range candidates {
		u := view.PathUtilization(candidate)
		if best < 0 || u < bestUtilization {
			best = i
			bestUtilization = u
		}
	}
	return best
}
