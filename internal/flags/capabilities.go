package flags

import (
	"context"
	"errors"
)

// Getter reads a single flag. *Store implements it.
type Getter interface {
	Get(ctx context.Context, key string) (*Flag, error)
}

// Capabilities is the resolved set of optional client features.
type Capabilities struct {
	Search             bool `json:"search"`
	CuratedList        bool `json:"curated_list"`
	CrossChainFallback bool `json:"cross_chain_fallback"`
	ConnectionGating   bool `json:"connection_gating"`
}

// AllCapabilities has every capability enabled.
func AllCapabilities() Capabilities {
	return Capabilities{
		Search:             true,
		CuratedList:        true,
		CrossChainFallback: true,
		ConnectionGating:   true,
	}
}

// Enabled reports whether key is on. Missing flags and a nil getter count as
// enabled; any other lookup error is returned with enabled=true.
func Enabled(ctx context.Context, g Getter, key string) (bool, error) {
	if g == nil {
		return true, nil
	}
	f, err := g.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return f.Value, nil
}

// LoadCapabilities resolves every capability. Lookup failures leave the
// affected capability enabled and the first error is returned.
func LoadCapabilities(ctx context.Context, g Getter) (Capabilities, error) {
	caps := AllCapabilities()
	var firstErr error

	targets := map[string]*bool{
		CapabilitySearch:             &caps.Search,
		CapabilityCuratedList:        &caps.CuratedList,
		CapabilityCrossChainFallback: &caps.CrossChainFallback,
		CapabilityConnectionGating:   &caps.ConnectionGating,
	}
	for _, key := range CapabilityKeys {
		on, err := Enabled(ctx, g, key)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		*targets[key] = on
	}
	return caps, firstErr
}
