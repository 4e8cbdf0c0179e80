// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonedriver

import (
	"github.com/hpe-storage/fc-zone-libs/model"
)

// ZoneDriver turns a verified-reachable initiator->targets map for one fabric into the minimal
// set of zone create/update/delete operations under the fabric's zoning policy.  Every call
// reads the active zone set fresh from the switch and diffs against that snapshot; nothing is
// cached between calls.  Calls against the same fabric are serialized internally.
type ZoneDriver interface {
	// AddConnection establishes zoning so each initiator sees its targets.  hostName and
	// storageSystem are optional friendly-name inputs for zone name generation.
	AddConnection(fabricName string, initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error

	// DeleteConnection removes the zoning established by AddConnection, preserving zone
	// members unrelated to this detach.
	DeleteConnection(fabricName string, initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error

	// GetSanContext reports which of the given target WWNs are visible on each configured
	// fabric; used for scheduling decisions outside attach/detach.
	GetSanContext(targetWwnList []string) (map[string][]string, error)
}
