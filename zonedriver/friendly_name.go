// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonedriver

import (
	"strings"

	"github.com/hpe-storage/fc-zone-libs/model"
)

const (
	// Fabric OS caps zone names at 64 characters
	maxZoneNameLength = 64
)

// FriendlyZoneName derives the deterministic name of the zone serving one connection.  Under
// initiator-target policy the name covers one (initiator, target) pair; under initiator policy
// it covers the initiator alone.  Determinism is what makes repeated attach/detach calls
// idempotent: the driver finds prior work by exact name lookup in the active zone set.
//
// The name is prefix + [host_] + initiator [+ target] [+ _storageSystem], with every input
// reduced to raw WWN form or filtered to the switch's supported character set, then truncated
// to the switch limit.
func FriendlyZoneName(policy, initiator, target, hostName, storageSystem, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if hostName != "" {
		b.WriteString(hostName)
		b.WriteString("_")
	}
	b.WriteString(model.RawWwn(initiator))
	if policy == model.ZoningPolicyInitiatorTarget {
		b.WriteString(model.RawWwn(target))
	}
	if storageSystem != "" {
		b.WriteString("_")
		b.WriteString(storageSystem)
	}

	name := filterZoneName(b.String())
	if len(name) > maxZoneNameLength {
		name = name[:maxZoneNameLength]
	}
	return name
}

// filterZoneName drops every character the switch rejects in zone names
func filterZoneName(name string) string {
	var b strings.Builder
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
