// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package model

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// This model package *only* defines the objects and properties that are shared between the zone
// manager, the SAN lookup service, the zone drivers and the southbound connectors.  Nothing in
// here talks to a switch; these are pure value types.
//
// WWN FORMS
//
//		Two textual forms of a WWN are used throughout.  The "raw" form is 16 lowercase hex
//		digits with no separators and is the canonical form for map keys and membership
//		comparisons.  The "colon" form (aa:bb:cc:...) is what switch firmware expects on zone
//		creation calls.  Every WWN is normalized to colon form before it goes south and to raw
//		form before it is compared or stored.
//
///////////////////////////////////////////////////////////////////////////////////////////////////

const (
	// ZoningPolicyInitiatorTarget - one zone per (initiator, target) pair
	ZoningPolicyInitiatorTarget = "initiator-target"

	// ZoningPolicyInitiator - one zone per initiator holding all of its targets
	ZoningPolicyInitiator = "initiator"
)

const (
	// ProtocolSSH - CLI over SSH southbound transport
	ProtocolSSH = "ssh"

	// ProtocolHTTP - HTTP southbound transport
	ProtocolHTTP = "http"

	// ProtocolREST - REST southbound transport
	ProtocolREST = "rest"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
// Device Mapping Object
///////////////////////////////////////////////////////////////////////////////////////////////////

// DeviceMapping : subset of a candidate initiator/target WWN list that is actually logged into
// one fabric.  WWNs are in raw form.
type DeviceMapping struct {
	InitiatorPortWwnList []string `json:"initiator_port_wwn_list"` // Host-side ports visible on the fabric
	TargetPortWwnList    []string `json:"target_port_wwn_list"`    // Array-side ports visible on the fabric
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Zone Objects
///////////////////////////////////////////////////////////////////////////////////////////////////

// Zone : a named group of WWNs permitted to talk to each other on a fabric
type Zone struct {
	Name    string   `json:"name"`              // Deterministically derived zone name
	Members []string `json:"members,omitempty"` // Member WWNs, colon form
}

// ActiveZoneSet : snapshot of a fabric's currently enforced zoning configuration.  Read fresh
// from the switch at the start of every mutating call; never cached across calls.
type ActiveZoneSet struct {
	Name  string              `json:"active_zone_config,omitempty"` // Active zone configuration name
	Zones map[string][]string `json:"zones,omitempty"`              // Zone name -> member WWNs (colon form)
}

// HasZone reports whether the snapshot contains a zone with the given name
func (azs *ActiveZoneSet) HasZone(name string) bool {
	if azs == nil {
		return false
	}
	_, found := azs.Zones[name]
	return found
}

// ZoneMembers returns the member list of the named zone, or nil if the zone is not present
func (azs *ActiveZoneSet) ZoneMembers(name string) []string {
	if azs == nil {
		return nil
	}
	return azs.Zones[name]
}

// InitiatorTargetMap : initiator WWN -> target WWNs requiring connectivity.  Keys and members
// may arrive in either WWN form; consumers normalize as needed.
type InitiatorTargetMap map[string][]string
