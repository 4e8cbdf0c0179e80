// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonedriver

import (
	"strings"

	"github.com/hpe-storage/fc-zone-libs/concurrent"
	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
)

const (
	// Named lock prefix; one lock per fabric identity
	zoningLockPrefix = "zoning-"
)

// BrcdZoneDriver enacts zoning policy on Brocade fabrics.  The read-modify-write cycle against
// the switch (fetch active zone set, compute diff, push changes) is not atomic switch-side, so
// the driver holds a named per-fabric lock across the whole sequence.
type BrcdZoneDriver struct {
	cfg          *config.Config
	newConnector connector.Factory
	fabricLocks  *concurrent.MapMutex
}

var _ ZoneDriver = &BrcdZoneDriver{}

// NewBrcdZoneDriver returns a zone driver over the configured fabrics
func NewBrcdZoneDriver(cfg *config.Config) *BrcdZoneDriver {
	return NewBrcdZoneDriverWithFactory(cfg, connector.New)
}

// NewBrcdZoneDriverWithFactory allows the southbound factory to be injected
func NewBrcdZoneDriverWithFactory(cfg *config.Config, factory connector.Factory) *BrcdZoneDriver {
	return &BrcdZoneDriver{
		cfg:          cfg,
		newConnector: factory,
		fabricLocks:  concurrent.NewMapMutex(),
	}
}

// AddConnection creates or grows the zones needed for each initiator to see its targets.
// Idempotent: work already reflected in the fresh switch snapshot is skipped, and under
// initiator policy only members the zone is missing are sent south (several firmware versions
// reject re-adding an existing member instead of treating it as a no-op).
func (d *BrcdZoneDriver) AddConnection(fabricName string, initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	log.Tracef(">>>>> AddConnection called, fabric=%v map=%v", fabricName, initiatorTargetMap)
	defer log.Trace("<<<<< AddConnection")

	fabric, err := d.cfg.Fabric(fabricName)
	if err != nil {
		return zerrors.NewZoneDriverError(fabricName, zerrors.InvalidArgument, err)
	}

	d.fabricLocks.Lock(zoningLockPrefix + fabricName)
	defer d.fabricLocks.Unlock(zoningLockPrefix + fabricName)

	conn, azs, err := d.openSession(fabric)
	if err != nil {
		return err
	}
	defer conn.Cleanup()

	zoneCreate := make(map[string][]string)
	zoneUpdate := make(map[string][]string)

	for initiator, targets := range initiatorTargetMap {
		switch fabric.ZoningPolicy {
		case model.ZoningPolicyInitiatorTarget:
			// One zone per pair; existing zones are never updated under this policy
			for _, target := range targets {
				name := FriendlyZoneName(fabric.ZoningPolicy, initiator, target, hostName, storageSystem, fabric.ZoneNamePrefix)
				if azs.HasZone(name) {
					log.Debugf("zone %s already exists on fabric %s, skipping", name, fabricName)
					continue
				}
				zoneCreate[name] = []string{model.ColonWwn(initiator), model.ColonWwn(target)}
			}
		case model.ZoningPolicyInitiator:
			name := FriendlyZoneName(fabric.ZoningPolicy, initiator, "", hostName, storageSystem, fabric.ZoneNamePrefix)
			if !azs.HasZone(name) {
				members := []string{model.ColonWwn(initiator)}
				for _, target := range targets {
					members = append(members, model.ColonWwn(target))
				}
				zoneCreate[name] = members
				continue
			}
			// Grow the existing zone by only the members it is missing
			existing := rawMemberSet(azs.ZoneMembers(name))
			var missing []string
			for _, target := range targets {
				if !existing[model.RawWwn(target)] {
					missing = append(missing, model.ColonWwn(target))
				}
			}
			if len(missing) > 0 {
				zoneUpdate[name] = missing
			} else {
				log.Debugf("zone %s on fabric %s already holds all targets, skipping", name, fabricName)
			}
		default:
			return zerrors.NewZoneDriverError(fabricName, zerrors.InvalidArgument, "unknown zoning policy "+fabric.ZoningPolicy)
		}
	}

	if len(zoneCreate) > 0 {
		results, err := conn.AddZones(zoneCreate, fabric.ZoneActivate, azs)
		logZoneOpResults(fabricName, "add", results)
		if err != nil {
			return zerrors.NewZoneDriverError(fabricName, err)
		}
	}
	if len(zoneUpdate) > 0 {
		results, err := conn.UpdateZones(zoneUpdate, fabric.ZoneActivate, connector.ZoneMemberAdd, azs)
		logZoneOpResults(fabricName, "update", results)
		if err != nil {
			return zerrors.NewZoneDriverError(fabricName, err)
		}
	}
	return nil
}

// DeleteConnection tears down the zoning for each (initiator, targets) entry.  A zone whose
// members all belong to this detach is deleted outright; a zone holding unrelated members is
// shrunk by an update that removes only this detach's targets, never the initiator and never
// shared members.
func (d *BrcdZoneDriver) DeleteConnection(fabricName string, initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	log.Tracef(">>>>> DeleteConnection called, fabric=%v map=%v", fabricName, initiatorTargetMap)
	defer log.Trace("<<<<< DeleteConnection")

	fabric, err := d.cfg.Fabric(fabricName)
	if err != nil {
		return zerrors.NewZoneDriverError(fabricName, zerrors.InvalidArgument, err)
	}

	d.fabricLocks.Lock(zoningLockPrefix + fabricName)
	defer d.fabricLocks.Unlock(zoningLockPrefix + fabricName)

	conn, azs, err := d.openSession(fabric)
	if err != nil {
		return err
	}
	defer conn.Cleanup()

	var zoneDelete []string
	zoneUpdate := make(map[string][]string)

	for initiator, targets := range initiatorTargetMap {
		switch fabric.ZoningPolicy {
		case model.ZoningPolicyInitiatorTarget:
			for _, target := range targets {
				name := FriendlyZoneName(fabric.ZoningPolicy, initiator, target, hostName, storageSystem, fabric.ZoneNamePrefix)
				if azs.HasZone(name) {
					zoneDelete = append(zoneDelete, name)
				}
			}
		case model.ZoningPolicyInitiator:
			name := FriendlyZoneName(fabric.ZoningPolicy, initiator, "", hostName, storageSystem, fabric.ZoneNamePrefix)
			if !azs.HasZone(name) {
				continue
			}
			// connection holds everything this detach accounts for
			connectionSet := map[string]bool{model.RawWwn(initiator): true}
			for _, target := range targets {
				connectionSet[model.RawWwn(target)] = true
			}
			hasUnrelated := false
			for _, member := range azs.ZoneMembers(name) {
				if !connectionSet[model.RawWwn(member)] {
					hasUnrelated = true
					break
				}
			}
			if !hasUnrelated {
				// nothing left worth keeping; do not leave an initiator-only zone behind
				zoneDelete = append(zoneDelete, name)
				continue
			}
			existing := rawMemberSet(azs.ZoneMembers(name))
			var remove []string
			for _, target := range targets {
				if existing[model.RawWwn(target)] {
					remove = append(remove, model.ColonWwn(target))
				}
			}
			if len(remove) > 0 {
				zoneUpdate[name] = remove
			}
		default:
			return zerrors.NewZoneDriverError(fabricName, zerrors.InvalidArgument, "unknown zoning policy "+fabric.ZoningPolicy)
		}
	}

	if len(zoneUpdate) > 0 {
		results, err := conn.UpdateZones(zoneUpdate, fabric.ZoneActivate, connector.ZoneMemberRemove, azs)
		logZoneOpResults(fabricName, "remove", results)
		if err != nil {
			return zerrors.NewZoneDriverError(fabricName, err)
		}
	}
	if len(zoneDelete) > 0 {
		// one southbound call, semicolon-joined; batching is the driver's job
		if err := conn.DeleteZones(strings.Join(zoneDelete, ";"), fabric.ZoneActivate, azs); err != nil {
			return zerrors.NewZoneDriverError(fabricName, err)
		}
	}
	return nil
}

// GetSanContext reports which of the given target WWNs are visible on each configured fabric
func (d *BrcdZoneDriver) GetSanContext(targetWwnList []string) (map[string][]string, error) {
	log.Tracef(">>>>> GetSanContext called, targets=%v", targetWwnList)
	defer log.Trace("<<<<< GetSanContext")

	targets := model.ColonWwnList(targetWwnList)
	sanContext := make(map[string][]string, len(d.cfg.FabricNames))
	for _, fabricName := range d.cfg.FabricNames {
		fabric, err := d.cfg.Fabric(fabricName)
		if err != nil {
			return nil, zerrors.NewZoneDriverError(fabricName, zerrors.InvalidArgument, err)
		}
		visible, err := d.fabricVisibleTargets(fabric, targets)
		if err != nil {
			return nil, err
		}
		sanContext[fabricName] = visible
	}
	return sanContext, nil
}

func (d *BrcdZoneDriver) fabricVisibleTargets(fabric *config.FabricConfig, targets []string) ([]string, error) {
	conn, err := d.newConnector(fabric)
	if err != nil {
		return nil, zerrors.NewZoneDriverError(fabric.Name, zerrors.ConnectionFailed, err)
	}
	defer conn.Cleanup()

	nameserver, err := conn.GetNameserverInfo()
	if err != nil {
		return nil, zerrors.NewZoneDriverError(fabric.Name, err)
	}
	loggedIn := make(map[string]bool, len(nameserver))
	for _, wwn := range nameserver {
		loggedIn[wwn] = true
	}
	visible := []string{}
	for _, target := range targets {
		if loggedIn[target] {
			visible = append(visible, target)
		}
	}
	return visible, nil
}

// openSession dials the fabric, gates on firmware support and takes the zone set snapshot all
// mutating calls diff against.  The caller owns Cleanup on the returned connector.
func (d *BrcdZoneDriver) openSession(fabric *config.FabricConfig) (connector.Connector, *model.ActiveZoneSet, error) {
	conn, err := d.newConnector(fabric)
	if err != nil {
		return nil, nil, zerrors.NewZoneDriverError(fabric.Name, zerrors.ConnectionFailed, err)
	}

	supported, err := conn.IsSupportedFirmware()
	if err != nil {
		conn.Cleanup()
		return nil, nil, zerrors.NewZoneDriverError(fabric.Name, err)
	}
	if !supported {
		conn.Cleanup()
		return nil, nil, zerrors.NewZoneDriverError(fabric.Name, zerrors.UnsupportedFirmware,
			"switch firmware on fabric "+fabric.Name+" does not support zoning operations")
	}

	azs, err := conn.GetActiveZoneSet()
	if err != nil {
		conn.Cleanup()
		return nil, nil, zerrors.NewZoneDriverError(fabric.Name, err)
	}
	return conn, azs, nil
}

func rawMemberSet(members []string) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, member := range members {
		set[model.RawWwn(member)] = true
	}
	return set
}

func logZoneOpResults(fabricName, op string, results []connector.ZoneOpResult) {
	for _, result := range results {
		if result.Err != nil {
			log.Errorf("fabric %s zone %s %s: %s (%v)", fabricName, result.Zone, op, result.Status, result.Err)
			continue
		}
		log.Debugf("fabric %s zone %s %s: %s", fabricName, result.Zone, op, result.Status)
	}
}
