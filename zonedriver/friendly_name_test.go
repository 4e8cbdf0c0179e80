// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonedriver

import (
	"strings"
	"testing"

	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/stretchr/testify/assert"
)

func TestFriendlyZoneName(t *testing.T) {
	testCases := []struct {
		name          string
		policy        string
		initiator     string
		target        string
		hostName      string
		storageSystem string
		prefix        string
		want          string
	}{
		{
			name:      "initiator target pair with prefix",
			policy:    model.ZoningPolicyInitiatorTarget,
			initiator: "10:00:8c:7c:ff:52:3b:01",
			target:    "20:24:00:02:ac:00:0a:50",
			prefix:    "openstack_fab1_",
			want:      "openstack_fab1_10008c7cff523b0120240002ac000a50",
		},
		{
			name:      "raw form inputs produce the same name",
			policy:    model.ZoningPolicyInitiatorTarget,
			initiator: "10008c7cff523b01",
			target:    "20240002ac000a50",
			prefix:    "openstack_fab1_",
			want:      "openstack_fab1_10008c7cff523b0120240002ac000a50",
		},
		{
			name:      "initiator policy ignores the target",
			policy:    model.ZoningPolicyInitiator,
			initiator: "10:00:8c:7c:ff:52:3b:01",
			target:    "20:24:00:02:ac:00:0a:50",
			prefix:    "openstack_fab1_",
			want:      "openstack_fab1_10008c7cff523b01",
		},
		{
			name:      "host name is woven in before the initiator",
			policy:    model.ZoningPolicyInitiator,
			initiator: "10:00:8c:7c:ff:52:3b:01",
			hostName:  "esx-host-01",
			prefix:    "pre_",
			want:      "pre_esxhost01_10008c7cff523b01",
		},
		{
			name:          "storage system suffix with unsupported characters filtered",
			policy:        model.ZoningPolicyInitiator,
			initiator:     "10:00:8c:7c:ff:52:3b:01",
			storageSystem: "array.9",
			want:          "10008c7cff523b01_array9",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FriendlyZoneName(tc.policy, tc.initiator, tc.target, tc.hostName, tc.storageSystem, tc.prefix)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFriendlyZoneNameTruncation(t *testing.T) {
	name := FriendlyZoneName(model.ZoningPolicyInitiatorTarget,
		"10:00:8c:7c:ff:52:3b:01", "20:24:00:02:ac:00:0a:50",
		strings.Repeat("verylonghostname", 8), "", "prefix_")
	assert.Len(t, name, maxZoneNameLength)
}

func TestFriendlyZoneNameDistinctPerPair(t *testing.T) {
	first := FriendlyZoneName(model.ZoningPolicyInitiatorTarget,
		"10:00:8c:7c:ff:52:3b:01", "20:24:00:02:ac:00:0a:50", "", "", "")
	second := FriendlyZoneName(model.ZoningPolicyInitiatorTarget,
		"10:00:8c:7c:ff:52:3b:01", "20:24:00:02:ac:00:0a:51", "", "", "")
	assert.NotEqual(t, first, second)
}
