package policy

import (
	"fmt"
	"sort"
	"sync"
)

// PathSelector picks the paths handed to a caller out of the shortest-path
// candidates, in search order
type PathSelector interface {
	SelectPaths(view UtilizationView, candidates [][]string) [][]string
}

// PathLimiter is implemented by selectors that only look at the first
// PathLimit candidates
type PathLimiter interface {
	PathLimit() int
}

// UtilizationView exposes link utilization for selectors that weigh paths by load
type UtilizationView interface {
	PathUtilization(path []string) float64
}

// PolicyRegistry manages the available selection policies
type PolicyRegistry struct {
	selectors map[string]PathSelector
	mu        sync.RWMutex
}

func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		selectors: make(map[string]PathSelector),
	}
}

// Global registry instance, populated by init
var globalRegistry = NewPolicyRegistry()

// Register registers a selector under name
func (pr *PolicyRegistry) Register(name string, selector PathSelector) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if _, exists := pr.selectors[name]; exists {
		return fmt.Errorf("policy '%s' is already registered", name)
	}

	pr.selectors[name] = selector
	return nil
}

// Get retrieves a selector by name
func (pr *PolicyRegistry) Get(name string) (PathSelector, error) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	selector, exists := pr.selectors[name]
	if !exists {
		return nil, fmt.Errorf("policy '%s' not found in registry", name)
	}

	return selector, nil
}

// List returns the registered policy names, sorted
func (pr *PolicyRegistry) List() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	names := make([]string, 0, len(pr.selectors))
	for name := range pr.selectors {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func RegisterGlobal(name string, selector PathSelector) error {
	return globalRegistry.Register(name, selector)
}

func GetGlobal(name string) (PathSelector, error) {
	return globalRegistry.Get(name)
}

func ListGlobal() []string {
	return globalRegistry.List()
}
