// Package profile exports call-site classifications for offline tooling:
// CBOR snapshots and a SQLite profile store.
package profile

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/FinnC/moth-SOMns/vm"
)

// Snapshot is the state of every call site of one runtime at one moment.
// Created has second precision, which is what the CBOR encoding keeps.
type Snapshot struct {
	SessionID uuid.UUID    `cbor:"1,keyasint"`
	Created   time.Time    `cbor:"2,keyasint"`
	Options   Options      `cbor:"3,keyasint"`
	Sites     []SiteRecord `cbor:"4,keyasint"`
}

// Options records the runtime options the snapshot was taken under.
type Options struct {
	InlineCacheSize     int  `cbor:"1,keyasint"`
	EagerSpecialization bool `cbor:"2,keyasint"`
	TypeChecking        bool `cbor:"3,keyasint"`
}

// SiteRecord is the exported form of a vm.SiteReport.
type SiteRecord struct {
	ID              int      `cbor:"1,keyasint"`
	Kind            string   `cbor:"2,keyasint"`
	Selector        string   `cbor:"3,keyasint"`
	Source          string   `cbor:"4,keyasint"`
	ChainLength     int      `cbor:"5,keyasint"`
	State           string   `cbor:"6,keyasint"`
	Nodes           []string `cbor:"7,keyasint,omitempty"`
	Hits            uint64   `cbor:"8,keyasint"`
	Misses          uint64   `cbor:"9,keyasint"`
	Specializations uint64   `cbor:"10,keyasint"`
	Deopts          uint64   `cbor:"11,keyasint"`
}

// NewSnapshot captures the call sites registered with rt under a fresh
// session ID.
func NewSnapshot(rt *vm.Runtime) *Snapshot {
	opts := rt.Options()
	s := &Snapshot{
		SessionID: uuid.New(),
		Created:   time.Now().UTC().Truncate(time.Second),
		Options: Options{
			InlineCacheSize:     opts.InlineCacheSize,
			EagerSpecialization: opts.EagerSpecialization,
			TypeChecking:        opts.TypeChecking,
		},
	}
	for _, r := range rt.Snapshot() {
		s.Sites = append(s.Sites, SiteRecord{
			ID:              r.ID,
			Kind:            r.Kind,
			Selector:        r.Selector,
			Source:          r.Source,
			ChainLength:     r.ChainLength,
			State:           r.State.String(),
			Nodes:           r.Nodes,
			Hits:            r.Stats.Hits,
			Misses:          r.Stats.Misses,
			Specializations: r.Stats.Specializations,
			Deopts:          r.Stats.Deopts,
		})
	}
	return s
}

// Count returns the number of sites in each cache state.
func (s *Snapshot) Count() map[string]int {
	out := make(map[string]int)
	for _, site := range s.Sites {
		out[site.State]++
	}
	return out
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("profile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("profile: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
