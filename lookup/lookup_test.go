// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package lookup

import (
	"errors"
	"testing"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector/fake"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFabric    = "BRCD_FAB_1"
	testInitiator = "10008c7cff523b01"
	testTarget    = "20240002ac000a50"

	testInitiatorColon = "10:00:8c:7c:ff:52:3b:01"
	testTargetColon    = "20:24:00:02:ac:00:0a:50"
)

func testLookupConfig() *config.Config {
	return &config.Config{
		DefaultZoningPolicy: model.ZoningPolicyInitiatorTarget,
		FabricNames:         []string{testFabric},
		Fabrics: map[string]*config.FabricConfig{
			testFabric: {
				Name:     testFabric,
				Protocol: model.ProtocolSSH,
				Address:  "192.168.1.1",
				Username: "admin",
				Password: "password",
			},
		},
	}
}

func TestGetDeviceMappingFromNetwork(t *testing.T) {
	conn := fake.NewConnector(testFabric)
	conn.Nameserver = []string{testInitiatorColon, testTargetColon}
	service := NewSanLookupServiceWithFactory(testLookupConfig(), conn.Factory())

	deviceMap, err := service.GetDeviceMappingFromNetwork([]string{testInitiator}, []string{testTarget})
	require.NoError(t, err)

	require.Contains(t, deviceMap, testFabric)
	assert.Equal(t, []string{testInitiator}, deviceMap[testFabric].InitiatorPortWwnList)
	assert.Equal(t, []string{testTarget}, deviceMap[testFabric].TargetPortWwnList)
	assert.Equal(t, 1, conn.CleanupCount)
}

// WWNs absent from the nameserver must not appear in the fabric's mapping
func TestVisibilityFiltering(t *testing.T) {
	conn := fake.NewConnector(testFabric)
	conn.Nameserver = []string{testInitiatorColon}
	service := NewSanLookupServiceWithFactory(testLookupConfig(), conn.Factory())

	deviceMap, err := service.GetDeviceMappingFromNetwork(
		[]string{testInitiator, "10008c7cff523b02"},
		[]string{testTarget})
	require.NoError(t, err)

	assert.Equal(t, []string{testInitiator}, deviceMap[testFabric].InitiatorPortWwnList)
	assert.Empty(t, deviceMap[testFabric].TargetPortWwnList)
}

// Colon and raw spellings are matched against the nameserver identically
func TestLookupNormalizesWwnForms(t *testing.T) {
	conn := fake.NewConnector(testFabric)
	conn.Nameserver = []string{testInitiatorColon, testTargetColon}
	service := NewSanLookupServiceWithFactory(testLookupConfig(), conn.Factory())

	deviceMap, err := service.GetDeviceMappingFromNetwork([]string{testInitiatorColon}, []string{testTargetColon})
	require.NoError(t, err)

	// Results are raw form regardless of the input spelling
	assert.Equal(t, []string{testInitiator}, deviceMap[testFabric].InitiatorPortWwnList)
	assert.Equal(t, []string{testTarget}, deviceMap[testFabric].TargetPortWwnList)
}

func TestLookupEmptyArguments(t *testing.T) {
	service := NewSanLookupService(testLookupConfig())

	_, err := service.GetDeviceMappingFromNetwork(nil, []string{testTarget})
	require.Error(t, err)

	var lookupErr *zerrors.LookupServiceError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, zerrors.InvalidArgument, lookupErr.Err.Code)
}

// A nameserver failure aborts the whole lookup and still releases the session
func TestLookupAbortsOnFabricFailure(t *testing.T) {
	conn := fake.NewConnector(testFabric)
	conn.NameserverErr = errors.New("nsshow failed")
	service := NewSanLookupServiceWithFactory(testLookupConfig(), conn.Factory())

	_, err := service.GetDeviceMappingFromNetwork([]string{testInitiator}, []string{testTarget})
	require.Error(t, err)

	var lookupErr *zerrors.LookupServiceError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, testFabric, lookupErr.Fabric)
	assert.Equal(t, 1, conn.CleanupCount)
}
