// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package fake

import (
	"strings"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector"
	"github.com/hpe-storage/fc-zone-libs/model"
)

// UpdateCall records one UpdateZones invocation
type UpdateCall struct {
	Zones    map[string][]string
	Activate bool
	Op       connector.ZoneMemberOp
}

// AddCall records one AddZones invocation
type AddCall struct {
	Zones    map[string][]string
	Activate bool
}

// DeleteCall records one DeleteZones invocation
type DeleteCall struct {
	ZoneNames string
	Activate  bool
}

// Connector is a scripted southbound connector.  Tests prime it with a nameserver view and an
// active zone set, then assert on the journal of mutating calls.
type Connector struct {
	FabricName string

	// Scripted state
	Nameserver    []string // colon form
	ZoneSet       *model.ActiveZoneSet
	Supported     bool
	NameserverErr error
	ZoneSetErr    error
	MutationErr   error

	// Call journal
	AddCalls     []AddCall
	UpdateCalls  []UpdateCall
	DeleteCalls  []DeleteCall
	CleanupCount int
}

var _ connector.Connector = &Connector{}

// NewConnector returns a fake with supported firmware and an empty zone database
func NewConnector(fabricName string) *Connector {
	return &Connector{
		FabricName: fabricName,
		Supported:  true,
		ZoneSet:    &model.ActiveZoneSet{Name: "cfg_" + fabricName, Zones: map[string][]string{}},
	}
}

// Factory returns a connector.Factory that always hands out this instance, for injecting the
// fake into the lookup service and zone driver
func (c *Connector) Factory() connector.Factory {
	return func(fabric *config.FabricConfig) (connector.Connector, error) {
		return c, nil
	}
}

func (c *Connector) GetActiveZoneSet() (*model.ActiveZoneSet, error) {
	if c.ZoneSetErr != nil {
		return nil, c.ZoneSetErr
	}
	return c.ZoneSet, nil
}

func (c *Connector) GetNameserverInfo() ([]string, error) {
	if c.NameserverErr != nil {
		return nil, c.NameserverErr
	}
	return c.Nameserver, nil
}

func (c *Connector) AddZones(zones map[string][]string, activate bool, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	if c.MutationErr != nil {
		return nil, c.MutationErr
	}
	c.AddCalls = append(c.AddCalls, AddCall{Zones: zones, Activate: activate})
	results := make([]connector.ZoneOpResult, 0, len(zones))
	for name, members := range zones {
		if activeZoneSet.HasZone(name) {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneAlreadyExists})
			continue
		}
		c.ZoneSet.Zones[name] = append([]string{}, members...)
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneCreated})
	}
	return results, nil
}

func (c *Connector) UpdateZones(zones map[string][]string, activate bool, op connector.ZoneMemberOp, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	if c.MutationErr != nil {
		return nil, c.MutationErr
	}
	c.UpdateCalls = append(c.UpdateCalls, UpdateCall{Zones: zones, Activate: activate, Op: op})
	results := make([]connector.ZoneOpResult, 0, len(zones))
	for name, delta := range zones {
		members := c.ZoneSet.Zones[name]
		if op == connector.ZoneMemberAdd {
			members = append(members, delta...)
		} else {
			members = subtract(members, delta)
		}
		c.ZoneSet.Zones[name] = members
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneUpdated})
	}
	return results, nil
}

func (c *Connector) DeleteZones(zoneNames string, activate bool, activeZoneSet *model.ActiveZoneSet) error {
	if c.MutationErr != nil {
		return c.MutationErr
	}
	c.DeleteCalls = append(c.DeleteCalls, DeleteCall{ZoneNames: zoneNames, Activate: activate})
	for _, name := range splitZoneNames(zoneNames) {
		delete(c.ZoneSet.Zones, name)
	}
	return nil
}

func (c *Connector) IsSupportedFirmware() (bool, error) {
	return c.Supported, nil
}

func (c *Connector) Cleanup() error {
	c.CleanupCount++
	return nil
}

func subtract(members, delta []string) []string {
	removing := make(map[string]bool, len(delta))
	for _, member := range delta {
		removing[member] = true
	}
	out := make([]string, 0, len(members))
	for _, member := range members {
		if !removing[member] {
			out = append(out, member)
		}
	}
	return out
}

func splitZoneNames(zoneNames string) []string {
	var out []string
	for _, name := range strings.Split(zoneNames, ";") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
