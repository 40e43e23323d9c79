package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capability flag keys. A capability with no stored flag is enabled.
const (
	CapabilitySearch             = "capability.search"
	CapabilityCuratedList        = "capability.curated_list"
	CapabilityCrossChainFallback = "capability.cross_chain_fallback"
	CapabilityConnectionGating   = "capability.connection_gating"
)

// CapabilityKeys lists every known capability.
var CapabilityKeys = []string{
	CapabilitySearch,
	CapabilityCuratedList,
	CapabilityCrossChainFallback,
	CapabilityConnectionGating,
}
