// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package brocade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cfgShowOutput = `Defined configuration:
 cfg:   prod_cfg
                zone_a; zone_b
 zone:  zone_a  10:00:8c:7c:ff:52:3b:01; 20:24:00:02:ac:00:0a:50
 zone:  zone_b  10:00:8c:7c:ff:52:3b:02
                20:25:00:02:ac:00:0a:50

Effective configuration:
 cfg:   prod_cfg
 zone:  zone_a  10:00:8c:7c:ff:52:3b:01
                20:24:00:02:ac:00:0a:50
 zone:  zone_b
                10:00:8c:7c:ff:52:3b:02
                20:25:00:02:ac:00:0a:50
`

func TestParseCfgShow(t *testing.T) {
	azs := parseCfgShow(cfgShowOutput)
	assert.Equal(t, "prod_cfg", azs.Name)
	require.Len(t, azs.Zones, 2)
	assert.Equal(t, []string{"10:00:8c:7c:ff:52:3b:01", "20:24:00:02:ac:00:0a:50"}, azs.Zones["zone_a"])
	assert.Equal(t, []string{"10:00:8c:7c:ff:52:3b:02", "20:25:00:02:ac:00:0a:50"}, azs.Zones["zone_b"])
}

func TestParseCfgShowNoEffectiveConfiguration(t *testing.T) {
	output := `Defined configuration:
 no configuration defined

Effective configuration:
 no configuration in effect
`
	azs := parseCfgShow(output)
	assert.Empty(t, azs.Name)
	assert.Empty(t, azs.Zones)
}

// The defined configuration section is never mistaken for live state
func TestParseCfgShowIgnoresDefinedSection(t *testing.T) {
	output := `Defined configuration:
 cfg:   stale_cfg
 zone:  stale_zone  10:00:8c:7c:ff:52:3b:09

Effective configuration:
 cfg:   prod_cfg
 zone:  zone_a  10:00:8c:7c:ff:52:3b:01
`
	azs := parseCfgShow(output)
	assert.Equal(t, "prod_cfg", azs.Name)
	assert.NotContains(t, azs.Zones, "stale_zone")
	assert.Contains(t, azs.Zones, "zone_a")
}

func TestParseNameserver(t *testing.T) {
	output := ` {
 Type Pid    COS     PortName                NodeName                 TTL(sec)
 N    051e00;    2,3; 20:24:00:02:ac:00:0a:50; 20:24:00:02:ac:00:0a:00; na
    FC4s: FCP
    PortSymb: [45] "HPE 3PAR - Port 0:2:4"
 NL   051f01;    3;   10:00:8c:7c:ff:52:3b:01; 10:00:8c:7c:ff:52:3b:00; na
    FC4s: FCP
The Local Name Server has 2 entries }
`
	wwns := parseNameserver(output)
	assert.Equal(t, []string{"20:24:00:02:ac:00:0a:50", "10:00:8c:7c:ff:52:3b:01"}, wwns)
}

func TestParseNameserverSkipsNonDeviceLines(t *testing.T) {
	output := `FC4s: FCP; extra; field
Fabric Port Name: 20:1e:00:05:33:26:8e:00
`
	assert.Empty(t, parseNameserver(output))
}

func TestParseFirmwareVersion(t *testing.T) {
	testCases := []struct {
		name      string
		output    string
		wantMajor int
		wantMinor int
		wantFound bool
	}{
		{
			name: "typical version block",
			output: `Kernel:     2.6.14.2
Fabric OS:  v7.4.2a
Made on:    Thu Jun 15 15:22:08 2017
`,
			wantMajor: 7,
			wantMinor: 4,
			wantFound: true,
		},
		{
			name:      "oldest supported release",
			output:    "Fabric OS:  v6.4.0",
			wantMajor: 6,
			wantMinor: 4,
			wantFound: true,
		},
		{
			name:      "no version line",
			output:    "Kernel:     2.6.14.2",
			wantFound: false,
		},
		{
			name:      "garbled version",
			output:    "Fabric OS:  vX.Y.Z",
			wantFound: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			major, minor, found := parseFirmwareVersion(tc.output)
			assert.Equal(t, tc.wantFound, found)
			if tc.wantFound {
				assert.Equal(t, tc.wantMajor, major)
				assert.Equal(t, tc.wantMinor, minor)
			}
		})
	}
}

func TestScanForCLIError(t *testing.T) {
	assert.Empty(t, scanForCLIError("zone_a added to prod_cfg\n"))
	assert.Equal(t, `Invalid name "bad zone"`, scanForCLIError("some output\nInvalid name \"bad zone\"\n"))
	assert.NotEmpty(t, scanForCLIError("trans_abort: transaction commit failed\n"))
}
