// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonemanager

import (
	"errors"
	"testing"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector/fake"
	"github.com/hpe-storage/fc-zone-libs/lookup"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	"github.com/hpe-storage/fc-zone-libs/zonedriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFabric       = "BRCD_FAB_1"
	testSecondFabric = "BRCD_FAB_2"
	testInitiator    = "10008c7cff523b01"
	testTarget       = "20240002ac000a50"

	testInitiatorColon = "10:00:8c:7c:ff:52:3b:01"
	testTargetColon    = "20:24:00:02:ac:00:0a:50"
)

// driverCall records one fan-out delegation to the zone driver
type driverCall struct {
	Fabric string
	Map    model.InitiatorTargetMap
}

// fakeZoneDriver journals the per-fabric calls the manager hands down
type fakeZoneDriver struct {
	AddCalls    []driverCall
	DeleteCalls []driverCall
	Err         error
}

func (d *fakeZoneDriver) AddConnection(fabricName string, itMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	if d.Err != nil {
		return d.Err
	}
	d.AddCalls = append(d.AddCalls, driverCall{Fabric: fabricName, Map: itMap})
	return nil
}

func (d *fakeZoneDriver) DeleteConnection(fabricName string, itMap model.InitiatorTargetMap, hostName, storageSystem string) error {
	if d.Err != nil {
		return d.Err
	}
	d.DeleteCalls = append(d.DeleteCalls, driverCall{Fabric: fabricName, Map: itMap})
	return nil
}

func (d *fakeZoneDriver) GetSanContext(targetWwnList []string) (map[string][]string, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return map[string][]string{testFabric: targetWwnList}, nil
}

// fakeLookup hands back a scripted device map
type fakeLookup struct {
	DeviceMap map[string]*model.DeviceMapping
	Err       error
}

func (l *fakeLookup) GetDeviceMappingFromNetwork(initiatorWwns, targetWwns []string) (map[string]*model.DeviceMapping, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.DeviceMap, nil
}

func testManagerConfig() *config.Config {
	return &config.Config{
		DefaultZoningPolicy: model.ZoningPolicyInitiatorTarget,
		RefCountStore:       config.RefCountStoreMemory,
		FabricNames:         []string{testFabric},
		Fabrics: map[string]*config.FabricConfig{
			testFabric: {
				Name:           testFabric,
				Protocol:       model.ProtocolSSH,
				Address:        "192.168.1.1",
				Username:       "admin",
				Password:       "password",
				ZoningPolicy:   model.ZoningPolicyInitiatorTarget,
				ZoneActivate:   true,
				ZoneNamePrefix: "openstack_fab1_",
			},
		},
	}
}

func visibleLookup() *fakeLookup {
	return &fakeLookup{
		DeviceMap: map[string]*model.DeviceMapping{
			testFabric: {
				InitiatorPortWwnList: []string{testInitiator},
				TargetPortWwnList:    []string{testTarget},
			},
		},
	}
}

// A pair's zoning lifecycle: only the 0->1 attach and the 1->0 detach reach the driver.
func TestRefCountStateMachine(t *testing.T) {
	driver := &fakeZoneDriver{}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, NewMemoryRefCounter())
	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}

	// refcount 0 -> 1 zones
	require.NoError(t, manager.AddConnection(itMap, "", ""))
	require.Len(t, driver.AddCalls, 1)
	assert.Equal(t, testFabric, driver.AddCalls[0].Fabric)
	assert.Equal(t, model.InitiatorTargetMap{testInitiator: {testTarget}}, driver.AddCalls[0].Map)

	// refcount 1 -> 2 is bookkeeping only
	require.NoError(t, manager.AddConnection(itMap, "", ""))
	assert.Len(t, driver.AddCalls, 1)

	// refcount 2 -> 1 is bookkeeping only
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Empty(t, driver.DeleteCalls)

	// refcount 1 -> 0 unzones
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	require.Len(t, driver.DeleteCalls, 1)
	assert.Equal(t, model.InitiatorTargetMap{testInitiator: {testTarget}}, driver.DeleteCalls[0].Map)
}

// Without reference counting every attach zones and every detach unzones.
func TestNoneStoreSkipsAdmissionCheck(t *testing.T) {
	driver := &fakeZoneDriver{}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, &noopRefCounter{})
	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}

	require.NoError(t, manager.AddConnection(itMap, "", ""))
	require.NoError(t, manager.AddConnection(itMap, "", ""))
	assert.Len(t, driver.AddCalls, 2)

	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Len(t, driver.DeleteCalls, 1)
}

// A fabric where the lookup sees neither end gets no driver call at all.
func TestFabricWithoutVisibilityIsSkipped(t *testing.T) {
	driver := &fakeZoneDriver{}
	lookupService := &fakeLookup{
		DeviceMap: map[string]*model.DeviceMapping{
			testFabric: {InitiatorPortWwnList: []string{}, TargetPortWwnList: []string{}},
		},
	}
	manager := NewZoneManagerWithComponents(testManagerConfig(), lookupService, driver, NewMemoryRefCounter())

	require.NoError(t, manager.AddConnection(model.InitiatorTargetMap{testInitiator: {testTarget}}, "", ""))
	assert.Empty(t, driver.AddCalls)
}

func TestAddConnectionEmptyMap(t *testing.T) {
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), &fakeZoneDriver{}, NewMemoryRefCounter())
	err := manager.AddConnection(model.InitiatorTargetMap{}, "", "")
	require.Error(t, err)

	var managerErr *zerrors.ZoneManagerError
	require.True(t, errors.As(err, &managerErr))
	assert.Equal(t, zerrors.InvalidArgument, managerErr.Err.Code)
}

func TestLookupFailureNamesTheFabric(t *testing.T) {
	lookupService := &fakeLookup{Err: zerrors.NewLookupServiceError(testFabric, zerrors.ConnectionFailed, "dial tcp: connection refused")}
	manager := NewZoneManagerWithComponents(testManagerConfig(), lookupService, &fakeZoneDriver{}, NewMemoryRefCounter())

	err := manager.AddConnection(model.InitiatorTargetMap{testInitiator: {testTarget}}, "", "")
	require.Error(t, err)

	var managerErr *zerrors.ZoneManagerError
	require.True(t, errors.As(err, &managerErr))
	assert.Equal(t, testFabric, managerErr.Fabric)
}

func TestDriverFailureNamesTheFabric(t *testing.T) {
	driver := &fakeZoneDriver{Err: zerrors.NewZoneDriverError(testFabric, zerrors.ZoneOperationFailed, "zonecreate failed")}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, NewMemoryRefCounter())

	err := manager.AddConnection(model.InitiatorTargetMap{testInitiator: {testTarget}}, "", "")
	require.Error(t, err)

	var managerErr *zerrors.ZoneManagerError
	require.True(t, errors.As(err, &managerErr))
	assert.Equal(t, testFabric, managerErr.Fabric)
}

// A failed driver call leaves no trace in the counts, so retrying the attach reaches the
// driver again instead of being filtered as a duplicate reference.
func TestAddConnectionRetriesAfterDriverFailure(t *testing.T) {
	driver := &fakeZoneDriver{Err: zerrors.NewZoneDriverError(testFabric, zerrors.ZoneOperationFailed, "cfgsave failed")}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, NewMemoryRefCounter())
	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}

	require.Error(t, manager.AddConnection(itMap, "", ""))
	assert.Empty(t, driver.AddCalls)

	// The switch recovers; the retry must zone rather than report spurious success
	driver.Err = nil
	require.NoError(t, manager.AddConnection(itMap, "", ""))
	require.Len(t, driver.AddCalls, 1)
	assert.Equal(t, model.InitiatorTargetMap{testInitiator: {testTarget}}, driver.AddCalls[0].Map)

	// The count reflects exactly one live attachment
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Len(t, driver.DeleteCalls, 1)
}

// The detach mirror image: a failed unzone keeps the reference alive so the retry unzones.
func TestDeleteConnectionRetriesAfterDriverFailure(t *testing.T) {
	driver := &fakeZoneDriver{}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, NewMemoryRefCounter())
	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}

	require.NoError(t, manager.AddConnection(itMap, "", ""))
	require.Len(t, driver.AddCalls, 1)

	driver.Err = zerrors.NewZoneDriverError(testFabric, zerrors.ZoneOperationFailed, "zonedelete failed")
	require.Error(t, manager.DeleteConnection(itMap, "", ""))
	assert.Empty(t, driver.DeleteCalls)

	driver.Err = nil
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	require.Len(t, driver.DeleteCalls, 1)
	assert.Equal(t, model.InitiatorTargetMap{testInitiator: {testTarget}}, driver.DeleteCalls[0].Map)
}

// A pair visible on two fabrics gets zoned on both; each fabric keeps its own count.
func TestAddConnectionFansOutAcrossFabrics(t *testing.T) {
	cfg := testManagerConfig()
	cfg.FabricNames = []string{testFabric, testSecondFabric}
	cfg.Fabrics[testSecondFabric] = &config.FabricConfig{
		Name:           testSecondFabric,
		Protocol:       model.ProtocolSSH,
		Address:        "192.168.1.2",
		Username:       "admin",
		Password:       "password",
		ZoningPolicy:   model.ZoningPolicyInitiatorTarget,
		ZoneActivate:   true,
		ZoneNamePrefix: "openstack_fab2_",
	}
	mapping := &model.DeviceMapping{
		InitiatorPortWwnList: []string{testInitiator},
		TargetPortWwnList:    []string{testTarget},
	}
	lookupService := &fakeLookup{DeviceMap: map[string]*model.DeviceMapping{
		testFabric:       mapping,
		testSecondFabric: mapping,
	}}
	driver := &fakeZoneDriver{}
	manager := NewZoneManagerWithComponents(cfg, lookupService, driver, NewMemoryRefCounter())
	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}

	require.NoError(t, manager.AddConnection(itMap, "", ""))
	require.Len(t, driver.AddCalls, 2)
	assert.Equal(t, testFabric, driver.AddCalls[0].Fabric)
	assert.Equal(t, testSecondFabric, driver.AddCalls[1].Fabric)

	// A second attach is bookkeeping on both fabrics
	require.NoError(t, manager.AddConnection(itMap, "", ""))
	assert.Len(t, driver.AddCalls, 2)

	// Only the last detach unzones, again on both fabrics
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Empty(t, driver.DeleteCalls)
	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Len(t, driver.DeleteCalls, 2)
}

// The whole stack wired together over the fake southbound connector: one attach produces one
// zone on the switch with the expected deterministic name and colon-form members.
func TestAttachThroughFullStack(t *testing.T) {
	cfg := testManagerConfig()
	conn := fake.NewConnector(testFabric)
	conn.Nameserver = []string{testInitiatorColon, testTargetColon}

	manager := NewZoneManagerWithComponents(cfg,
		lookup.NewSanLookupServiceWithFactory(cfg, conn.Factory()),
		zonedriver.NewBrcdZoneDriverWithFactory(cfg, conn.Factory()),
		NewMemoryRefCounter())

	itMap := model.InitiatorTargetMap{testInitiator: {testTarget}}
	require.NoError(t, manager.AddConnection(itMap, "", ""))

	require.Len(t, conn.AddCalls, 1)
	assert.True(t, conn.AddCalls[0].Activate)
	assert.Equal(t, map[string][]string{
		"openstack_fab1_10008c7cff523b0120240002ac000a50": {testInitiatorColon, testTargetColon},
	}, conn.AddCalls[0].Zones)

	require.NoError(t, manager.DeleteConnection(itMap, "", ""))
	assert.Empty(t, conn.ZoneSet.Zones)
}

func TestGetSanContext(t *testing.T) {
	driver := &fakeZoneDriver{}
	manager := NewZoneManagerWithComponents(testManagerConfig(), visibleLookup(), driver, NewMemoryRefCounter())

	sanContext, err := manager.GetSanContext([]string{testTarget})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{testFabric: {testTarget}}, sanContext)

	_, err = manager.GetSanContext(nil)
	require.Error(t, err)
}
