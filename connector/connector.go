// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package connector

import (
	"fmt"
	"sync"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/model"
)

// ZoneMemberOp selects whether UpdateZones adds members to or removes members from existing zones
type ZoneMemberOp int

const (
	// ZoneMemberAdd - add the given members to each zone
	ZoneMemberAdd ZoneMemberOp = iota
	// ZoneMemberRemove - remove the given members from each zone
	ZoneMemberRemove
)

func (op ZoneMemberOp) String() string {
	if op == ZoneMemberRemove {
		return "remove"
	}
	return "add"
}

// ZoneOpStatus is the tagged outcome of a single zone mutation.  Reconciliation code branches
// on these values rather than pattern matching vendor error text.
type ZoneOpStatus int

const (
	// ZoneCreated - the zone did not exist and was created
	ZoneCreated ZoneOpStatus = iota
	// ZoneAlreadyExists - the zone already existed; nothing was sent to the switch
	ZoneAlreadyExists
	// ZoneUpdated - members were added to or removed from an existing zone
	ZoneUpdated
	// ZoneDeleted - the zone was removed
	ZoneDeleted
	// ZoneOpFailed - the switch rejected the mutation; Err holds the cause
	ZoneOpFailed
)

func (s ZoneOpStatus) String() string {
	switch s {
	case ZoneCreated:
		return "Created"
	case ZoneAlreadyExists:
		return "AlreadyExists"
	case ZoneUpdated:
		return "Updated"
	case ZoneDeleted:
		return "Deleted"
	default:
		return "Failed"
	}
}

// ZoneOpResult reports the outcome of one zone's mutation within a batched southbound call
type ZoneOpResult struct {
	Zone   string
	Status ZoneOpStatus
	Err    error
}

// Connector is the capability set every southbound transport variant must implement.  One
// Connector represents one session against one fabric; it is not safe for concurrent use and
// must be released with Cleanup on every exit path.
type Connector interface {
	// GetActiveZoneSet fetches the fabric's currently enforced zoning configuration
	GetActiveZoneSet() (*model.ActiveZoneSet, error)

	// GetNameserverInfo returns the WWNs currently logged into the fabric, colon form
	GetNameserverInfo() ([]string, error)

	// AddZones creates the given zones (name -> colon form members).  Zones already present in
	// activeZoneSet are reported as ZoneAlreadyExists and not sent to the switch.  When
	// activate is true the change is folded into the active configuration in the same call.
	AddZones(zones map[string][]string, activate bool, activeZoneSet *model.ActiveZoneSet) ([]ZoneOpResult, error)

	// UpdateZones adds members to or removes members from existing zones
	UpdateZones(zones map[string][]string, activate bool, op ZoneMemberOp, activeZoneSet *model.ActiveZoneSet) ([]ZoneOpResult, error)

	// DeleteZones removes the named zones.  zoneNames is a semicolon-joined list; batching
	// the names into one call is the driver's responsibility, splitting them back apart is
	// the transport's.
	DeleteZones(zoneNames string, activate bool, activeZoneSet *model.ActiveZoneSet) error

	// IsSupportedFirmware reports whether the switch firmware supports zoning operations
	IsSupportedFirmware() (bool, error)

	// Cleanup releases the southbound session; safe to call multiple times
	Cleanup() error
}

// Factory builds a Connector session for one fabric
type Factory func(fabric *config.FabricConfig) (Connector, error)

var (
	factoryMutex sync.RWMutex
	factories    = make(map[string]Factory)
)

// Register makes a transport available under the given protocol name.  Transport packages call
// this from init(), so selecting a transport is a compile-time decision plus a config string.
func Register(protocol string, factory Factory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	factories[protocol] = factory
}

// New opens a southbound session for the given fabric using its configured protocol
func New(fabric *config.FabricConfig) (Connector, error) {
	factoryMutex.RLock()
	factory, found := factories[fabric.Protocol]
	factoryMutex.RUnlock()
	if !found {
		return nil, fmt.Errorf("no southbound connector registered for protocol %q", fabric.Protocol)
	}
	return factory(fabric)
}
