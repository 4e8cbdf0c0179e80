// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonemanager

import (
	"errors"

	"github.com/hpe-storage/fc-zone-libs/config"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/lookup"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	"github.com/hpe-storage/fc-zone-libs/zonedriver"
)

// ZoneManager is the entry point invoked by volume attach/detach code.  It fans an
// initiator->targets map out across every configured fabric, narrows it by nameserver
// visibility and connection reference counts, and delegates the per-fabric zone work to the
// driver.  Constructed once at service start and shared by all call sites; it holds no mutable
// request state of its own.
type ZoneManager struct {
	cfg        *config.Config
	lookup     lookup.SanLookupService
	driver     zonedriver.ZoneDriver
	refCounter RefCounter
}

// NewZoneManager wires a manager with the default lookup service, zone driver and the
// configured reference count store
func NewZoneManager(cfg *config.Config) (*ZoneManager, error) {
	refCounter, err := NewRefCounter(cfg)
	if err != nil {
		return nil, err
	}
	return NewZoneManagerWithComponents(cfg, lookup.NewSanLookupService(cfg), zonedriver.NewBrcdZoneDriver(cfg), refCounter), nil
}

// NewZoneManagerWithComponents allows each collaborator to be injected
func NewZoneManagerWithComponents(cfg *config.Config, lookupService lookup.SanLookupService, driver zonedriver.ZoneDriver, refCounter RefCounter) *ZoneManager {
	return &ZoneManager{
		cfg:        cfg,
		lookup:     lookupService,
		driver:     driver,
		refCounter: refCounter,
	}
}

// AddConnection zones each initiator to its targets on every fabric where both ends are logged
// in.  A pair whose reference count was already positive is dropped before the driver call;
// its zoning exists and only the count moves.  Mutations already committed on earlier fabrics
// are not rolled back when a later fabric fails.
func (m *ZoneManager) AddConnection(initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	log.Tracef(">>>>> AddConnection called, map=%v", initiatorTargetMap)
	defer log.Trace("<<<<< AddConnection")

	if len(initiatorTargetMap) == 0 {
		return zerrors.NewZoneManagerError("", zerrors.InvalidArgument, "empty initiator target map")
	}
	return m.fanOut(initiatorTargetMap, true, hostName, storageSystem)
}

// DeleteConnection is the symmetric inverse of AddConnection.  A pair still referenced by
// another attachment is dropped before the driver call; only the last detach unzones.
func (m *ZoneManager) DeleteConnection(initiatorTargetMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	log.Tracef(">>>>> DeleteConnection called, map=%v", initiatorTargetMap)
	defer log.Trace("<<<<< DeleteConnection")

	if len(initiatorTargetMap) == 0 {
		return zerrors.NewZoneManagerError("", zerrors.InvalidArgument, "empty initiator target map")
	}
	return m.fanOut(initiatorTargetMap, false, hostName, storageSystem)
}

// GetSanContext reports which of the given targets are visible on each configured fabric
func (m *ZoneManager) GetSanContext(targetWwnList []string) (map[string][]string, error) {
	log.Tracef(">>>>> GetSanContext called, targets=%v", targetWwnList)
	defer log.Trace("<<<<< GetSanContext")

	if len(targetWwnList) == 0 {
		return nil, zerrors.NewZoneManagerError("", zerrors.InvalidArgument, "empty target wwn list")
	}
	sanContext, err := m.driver.GetSanContext(targetWwnList)
	if err != nil {
		return nil, zerrors.NewZoneManagerError(failedFabric(err), err)
	}
	return sanContext, nil
}

func (m *ZoneManager) fanOut(initiatorTargetMap model.InitiatorTargetMap, add bool, hostName, storageSystem string) error {
	for initiator, targets := range initiatorTargetMap {
		deviceMap, err := m.lookup.GetDeviceMappingFromNetwork([]string{initiator}, targets)
		if err != nil {
			return zerrors.NewZoneManagerError(failedFabric(err), err)
		}
		for _, fabricName := range m.cfg.FabricNames {
			mapping := deviceMap[fabricName]
			if mapping == nil || len(mapping.InitiatorPortWwnList) == 0 || len(mapping.TargetPortWwnList) == 0 {
				log.Debugf("initiator %s has no reachable targets on fabric %s, skipping", initiator, fabricName)
				continue
			}
			fabricMap := model.InitiatorTargetMap{model.RawWwn(initiator): mapping.TargetPortWwnList}
			validMap, err := m.validInitiatorTargetMap(fabricName, fabricMap, add)
			if err != nil {
				return zerrors.NewZoneManagerError(fabricName, err)
			}
			if len(validMap) == 0 {
				log.Debugf("all pairs for initiator %s on fabric %s are covered by existing references, skipping", initiator, fabricName)
				continue
			}
			if add {
				err = m.driver.AddConnection(fabricName, validMap, hostName, storageSystem)
			} else {
				err = m.driver.DeleteConnection(fabricName, validMap, hostName, storageSystem)
			}
			if err != nil {
				// The fabric's zoning did not change, so its counts must not either; undoing
				// them lets the caller's retry pass the admission check and reach the driver
				m.rollbackRefCounts(fabricName, fabricMap, add)
				return zerrors.NewZoneManagerError(fabricName, err)
			}
		}
	}
	return nil
}

// validInitiatorTargetMap applies the reference count admission check for one fabric.  On add,
// a pair is forwarded only when this is its first reference; on delete, only when the count
// reaches zero.  The count always moves; only the forwarding decision varies.
func (m *ZoneManager) validInitiatorTargetMap(fabricName string, initiatorTargetMap model.InitiatorTargetMap, add bool) (model.InitiatorTargetMap, error) {
	validMap := model.InitiatorTargetMap{}
	for initiator, targets := range initiatorTargetMap {
		for _, target := range targets {
			var boundary bool
			var err error
			if add {
				boundary, err = m.refCounter.Increment(fabricName, initiator, target)
			} else {
				boundary, err = m.refCounter.Decrement(fabricName, initiator, target)
			}
			if err != nil {
				return nil, err
			}
			if boundary {
				validMap[initiator] = append(validMap[initiator], target)
			}
		}
	}
	return validMap, nil
}

// rollbackRefCounts undoes the count movements made by validInitiatorTargetMap for one fabric
// after the driver call for that fabric failed.  Best effort: a counter failure here is logged
// rather than raised so the driver's error stays the one the caller sees.
func (m *ZoneManager) rollbackRefCounts(fabricName string, initiatorTargetMap model.InitiatorTargetMap, add bool) {
	for initiator, targets := range initiatorTargetMap {
		for _, target := range targets {
			var err error
			if add {
				_, err = m.refCounter.Decrement(fabricName, initiator, target)
			} else {
				_, err = m.refCounter.Increment(fabricName, initiator, target)
			}
			if err != nil {
				log.Errorf("could not roll back refcount for %s/%s on fabric %s: %v", initiator, target, fabricName, err)
			}
		}
	}
}

// failedFabric pulls the fabric name out of a lookup or driver error so the manager error can
// name the fabric being processed when the failure occurred
func failedFabric(err error) string {
	var lookupErr *zerrors.LookupServiceError
	if errors.As(err, &lookupErr) {
		return lookupErr.Fabric
	}
	var driverErr *zerrors.ZoneDriverError
	if errors.As(err, &driverErr) {
		return driverErr.Fabric
	}
	return ""
}
