// Package registry maps experiment kinds to their reveal topology, chance
// baseline and beacon-derived target generator. Adding an experiment kind
// means adding one table entry here; nothing else in the kernel switches on
// kind strings.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Topology determines how (and whether) a committed payload is revealed.
type Topology string

const (
	// TopologyEventWindow is the single-party reveal path: one committer
	// later reveals against a target, or vice versa.
	TopologyEventWindow Topology = "event-window"
	// TopologyMultiParty requires every session participant to commit
	// before any payload is disclosed.
	TopologyMultiParty Topology = "multi-party"
	// TopologyStandard skips commit/reveal entirely; outcomes are scored
	// immediately.
	TopologyStandard Topology = "standard"
)

var (
	ErrUnknownKind   = errors.New("registry: unknown experiment kind")
	ErrDuplicateKind = errors.New("registry: kind already registered")
)

// TargetGenerator builds target data for a kind from beacon randomness and a
// caller-fixed label. Generators are pure so targets can be recomputed by
// auditors.
type TargetGenerator func(randomness []byte, label string) (map[string]interface{}, error)

// Kind is one entry in the experiment table.
type Kind struct {
	Name              string
	Topology          Topology
	RequiresCommit    bool
	ChanceProbability float64
	Target            TargetGenerator
}

// Classification is the subset of Kind exposed to routing layers.
type Classification struct {
	RequiresCommit bool     `json:"requiresCommit"`
	RevealTopology Topology `json:"revealTopology"`
}

var (
	mu    sync.RWMutex
	kinds = map[string]Kind{}
)

// Register adds a kind to the table. The built-in kinds register at package
// init; applications can add their own before serving traffic.
func Register(k Kind) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := kinds[k.Name]; ok {
		return errors.WithMessage(ErrDuplicateKind, k.Name)
	}
	kinds[k.Name] = k
	return nil
}

// Lookup returns the table entry for name.
func Lookup(name string) (Kind, error) {
	mu.RLock()
	defer mu.RUnlock()
	k, ok := kinds[name]
	if !ok {
		return Kind{}, errors.WithMessage(ErrUnknownKind, name)
	}
	return k, nil
}

// Classify returns the reveal topology and commit requirement for name.
func Classify(name string) (Classification, error) {
	k, err := Lookup(name)
	if err != nil {
		return Classification{}, err
	}
	return Classification{RequiresCommit: k.RequiresCommit, RevealTopology: k.Topology}, nil
}

// Names returns the registered kind names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
