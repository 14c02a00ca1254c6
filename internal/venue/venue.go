// Package venue provides a registry of DEX venues and their swap routers,
// mirroring the asset registry model: the venue id is identity, everything
// else is metadata.
package venue

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Kind groups venues that share a router calling convention.
type Kind string

const (
	KindUniswapV3 Kind = "uniswap-v3"
	KindUniswapV2 Kind = "uniswap-v2"
)

// Venue describes a DEX router.
type Venue struct {
	id     string
	kind   Kind
	router common.Address
	quoter common.Address
}

// New creates a Venue.
func New(id string, kind Kind, router, quoter common.Address) *Venue {
	if id == "" {
		panic("venue: empty id")
	}
	if router == (common.Address{}) {
		panic("venue: zero router address")
	}
	return &Venue{id: id, kind: kind, router: router, quoter: quoter}
}

// ID returns the venue identifier (e.g. "uniswap-v3").
func (v *Venue) ID() string { return v.id }

// Kind returns the router calling convention.
func (v *Venue) Kind() Kind { return v.kind }

// Router returns the swap router contract address.
func (v *Venue) Router() common.Address { return v.router }

// Quoter returns the quote contract address (zero for V2-style venues,
// which quote through the router itself).
func (v *Venue) Quoter() common.Address { return v.quoter }

// String returns the venue id.
func (v *Venue) String() string { return v.id }

// Registry is a thread-safe registry of known venues.
type Registry struct {
	byID map[string]*Venue
	mu   sync.RWMutex
}

// NewRegistry creates a new empty venue registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Venue)}
}

// Register adds a venue to the registry.
// Panics if a venue with the same id is already registered.
func (r *Registry) Register(v *Venue) {
	if v == nil {
		panic("venue: cannot register nil venue")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[v.id]; exists {
		panic(fmt.Sprintf("venue: %s already registered", v.id))
	}
	r.byID[v.id] = v
}

// Get retrieves a venue by id.
func (r *Registry) Get(id string) (*Venue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byID[id]
	return v, ok
}

// All returns all registered venues.
func (r *Registry) All() []*Venue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Venue, 0, len(r.byID))
	for _, v := range r.byID {
		result = append(result, v)
	}
	return result
}

// Count returns the number of registered venues.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Well-known router/quoter addresses on Ethereum Mainnet
var (
	AddrUniswapV3Router   = common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	AddrUniswapV3Quoter   = common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	AddrSushiswapV3Router = common.HexToAddress("0x2E6cd2d30aa43f40aa81619ff4b6E0a41479B13F")
	AddrSushiswapV3Quoter = common.HexToAddress("0x64e8802FE490fa7cc61d3463958199161Bb608A7")
)

// DefaultRegistry returns a registry pre-populated with well-known venues.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(New("uniswap-v3", KindUniswapV3, AddrUniswapV3Router, AddrUniswapV3Quoter))
	r.Register(New("sushiswap-v3", KindUniswapV3, AddrSushiswapV3Router, AddrSushiswapV3Quoter))
	return r
}
