// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package lookup

import (
	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
)

// SanLookupService reports which of a candidate set of initiator/target WWNs are actually
// logged into each configured fabric, so the zone driver never tries to zone a port that
// cannot be reached.  Read-only; the only side effect is the southbound round trip.
type SanLookupService interface {
	GetDeviceMappingFromNetwork(initiatorWwns, targetWwns []string) (map[string]*model.DeviceMapping, error)
}

// BrcdSanLookupService resolves device visibility through the fabric nameserver
type BrcdSanLookupService struct {
	cfg          *config.Config
	newConnector connector.Factory
}

var _ SanLookupService = &BrcdSanLookupService{}

// NewSanLookupService returns a lookup service over the configured fabrics
func NewSanLookupService(cfg *config.Config) *BrcdSanLookupService {
	return &BrcdSanLookupService{cfg: cfg, newConnector: connector.New}
}

// NewSanLookupServiceWithFactory allows the southbound factory to be injected
func NewSanLookupServiceWithFactory(cfg *config.Config, factory connector.Factory) *BrcdSanLookupService {
	return &BrcdSanLookupService{cfg: cfg, newConnector: factory}
}

// GetDeviceMappingFromNetwork filters the candidate WWN lists down to the subset logged into
// each fabric's nameserver.  Results are keyed by fabric name with WWNs in raw form.  A
// southbound failure on any fabric aborts the lookup; zoning must not proceed against a fabric
// whose connectivity could not be verified.
func (s *BrcdSanLookupService) GetDeviceMappingFromNetwork(initiatorWwns, targetWwns []string) (map[string]*model.DeviceMapping, error) {
	log.Tracef(">>>>> GetDeviceMappingFromNetwork called, initiators=%v targets=%v", initiatorWwns, targetWwns)
	defer log.Trace("<<<<< GetDeviceMappingFromNetwork")

	if len(initiatorWwns) == 0 || len(targetWwns) == 0 {
		return nil, zerrors.NewLookupServiceError("", zerrors.InvalidArgument, "empty initiator or target wwn list")
	}

	// The nameserver reports colon form; compare in colon form, return raw form
	initiators := model.ColonWwnList(initiatorWwns)
	targets := model.ColonWwnList(targetWwns)

	deviceMap := make(map[string]*model.DeviceMapping, len(s.cfg.FabricNames))
	for _, fabricName := range s.cfg.FabricNames {
		fabric, err := s.cfg.Fabric(fabricName)
		if err != nil {
			return nil, zerrors.NewLookupServiceError(fabricName, zerrors.InvalidArgument, err)
		}
		mapping, err := s.fabricDeviceMapping(fabric, initiators, targets)
		if err != nil {
			return nil, err
		}
		deviceMap[fabricName] = mapping
	}
	log.Debugf("device mapping from network: %v", deviceMap)
	return deviceMap, nil
}

// fabricDeviceMapping intersects the candidates with one fabric's nameserver.  The session is
// released on every exit path.
func (s *BrcdSanLookupService) fabricDeviceMapping(fabric *config.FabricConfig, initiators, targets []string) (*model.DeviceMapping, error) {
	conn, err := s.newConnector(fabric)
	if err != nil {
		return nil, zerrors.NewLookupServiceError(fabric.Name, zerrors.ConnectionFailed, err)
	}
	defer conn.Cleanup()

	nameserver, err := conn.GetNameserverInfo()
	if err != nil {
		return nil, zerrors.NewLookupServiceError(fabric.Name, err)
	}

	loggedIn := make(map[string]bool, len(nameserver))
	for _, wwn := range nameserver {
		loggedIn[wwn] = true
	}

	mapping := &model.DeviceMapping{
		InitiatorPortWwnList: []string{},
		TargetPortWwnList:    []string{},
	}
	for _, wwn := range initiators {
		if loggedIn[wwn] {
			mapping.InitiatorPortWwnList = append(mapping.InitiatorPortWwnList, model.RawWwn(wwn))
		}
	}
	for _, wwn := range targets {
		if loggedIn[wwn] {
			mapping.TargetPortWwnList = append(mapping.TargetPortWwnList, model.RawWwn(wwn))
		}
	}
	return mapping, nil
}
