// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package brocade

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connector"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	"golang.org/x/crypto/ssh"
)

const (
	defaultSSHPort    = 22
	sshConnectTimeout = time.Duration(30) * time.Second

	// Name given to the zone configuration when the fabric has none in effect yet
	newZoneConfigName = "fc_zone_cfg"

	// Fabric OS commands
	cmdCfgShow    = "cfgshow"
	cmdNsShow     = "nsshow"
	cmdNsCamShow  = "nscamshow"
	cmdVersion    = "version"
	cmdZoneCreate = "zonecreate"
	cmdZoneAdd    = "zoneadd"
	cmdZoneRemove = "zoneremove"
	cmdZoneDelete = "zonedelete"
	cmdCfgCreate  = "cfgcreate"
	cmdCfgAdd     = "cfgadd"
	cmdCfgRemove  = "cfgremove"
	cmdCfgEnable  = "cfgenable"
	cmdCfgSave    = "cfgsave"
)

func init() {
	connector.Register(model.ProtocolSSH, newCLIConnector)
}

// CLIConnector drives Fabric OS over an SSH session, one command per exec channel.  Not safe
// for concurrent use; the zone driver serializes access per fabric.
type CLIConnector struct {
	fabric *config.FabricConfig
	client *ssh.Client
}

func newCLIConnector(fabric *config.FabricConfig) (connector.Connector, error) {
	log.Tracef(">>>>> newCLIConnector called, fabric=%v address=%v", fabric.Name, fabric.Address)
	defer log.Trace("<<<<< newCLIConnector")

	port := fabric.Port
	if port == 0 {
		port = defaultSSHPort
	}
	sshConfig := &ssh.ClientConfig{
		User: fabric.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(fabric.Password),
		},
		// Switch management ports rotate host keys on firmware upgrade
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshConnectTimeout,
	}
	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", fabric.Address, port), sshConfig)
	if err != nil {
		return nil, zerrors.NewZoneError(zerrors.ConnectionFailed, err)
	}
	return &CLIConnector{fabric: fabric, client: client}, nil
}

// run executes one Fabric OS command over a fresh exec channel.  Confirmation prompts
// (cfgenable, zonedelete) are answered with "y" on stdin.
func (c *CLIConnector) run(cmd string) (string, error) {
	if c.client == nil {
		return "", zerrors.NewZoneError(zerrors.ConnectionFailed, "southbound session already released")
	}
	wrapped := c.wrapVirtualFabric(cmd)
	log.Tracef("fabric %s cli: %v", c.fabric.Name, log.Scrubber([]string{wrapped}))

	session, err := c.client.NewSession()
	if err != nil {
		return "", zerrors.NewZoneError(zerrors.ConnectionFailed, err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader("y\n")
	out, err := session.CombinedOutput(wrapped)
	output := string(out)
	if err != nil {
		return output, zerrors.NewZoneErrorf(zerrors.ZoneOperationFailed, "%s failed: %v", firstWord(cmd), err)
	}
	if cliError := scanForCLIError(output); cliError != "" {
		return output, zerrors.NewZoneErrorf(zerrors.ZoneOperationFailed, "%s rejected: %s", firstWord(cmd), cliError)
	}
	return output, nil
}

// wrapVirtualFabric routes the command to the configured logical fabric when one is set
func (c *CLIConnector) wrapVirtualFabric(cmd string) string {
	if c.fabric.VirtualFabricID == "" {
		return cmd
	}
	return fmt.Sprintf("fosexec --fid %s -cmd \"%s\"", c.fabric.VirtualFabricID, cmd)
}

// GetActiveZoneSet reads the effective zoning configuration via cfgshow
func (c *CLIConnector) GetActiveZoneSet() (*model.ActiveZoneSet, error) {
	log.Tracef(">>>>> GetActiveZoneSet called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< GetActiveZoneSet")

	output, err := c.run(cmdCfgShow)
	if err != nil {
		return nil, err
	}
	return parseCfgShow(output), nil
}

// GetNameserverInfo returns the port WWNs logged into this fabric, local and cached remote
func (c *CLIConnector) GetNameserverInfo() ([]string, error) {
	log.Tracef(">>>>> GetNameserverInfo called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< GetNameserverInfo")

	var wwns []string
	for _, cmd := range []string{cmdNsShow, cmdNsCamShow} {
		output, err := c.run(cmd)
		if err != nil {
			return nil, err
		}
		wwns = append(wwns, parseNameserver(output)...)
	}
	return dedupe(wwns), nil
}

// AddZones creates the queued zones and folds them into the zone configuration.  Zones already
// present in the snapshot are reported as AlreadyExists without touching the switch.
func (c *CLIConnector) AddZones(zones map[string][]string, activate bool, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	log.Tracef(">>>>> AddZones called, fabric=%v zones=%v activate=%v", c.fabric.Name, len(zones), activate)
	defer log.Trace("<<<<< AddZones")

	results := make([]connector.ZoneOpResult, 0, len(zones))
	var created []string
	for name, members := range zones {
		if activeZoneSet.HasZone(name) {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneAlreadyExists})
			continue
		}
		cmd := fmt.Sprintf("%s \"%s\", \"%s\"", cmdZoneCreate, name, strings.Join(members, "; "))
		if _, err := c.run(cmd); err != nil {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneCreated})
		created = append(created, name)
	}
	if len(created) == 0 {
		return results, nil
	}

	cfgName := activeZoneSet.Name
	cfgCmd := cmdCfgAdd
	if cfgName == "" {
		cfgName = newZoneConfigName
		cfgCmd = cmdCfgCreate
	}
	cmd := fmt.Sprintf("%s \"%s\", \"%s\"", cfgCmd, cfgName, strings.Join(created, "; "))
	if _, err := c.run(cmd); err != nil {
		return results, err
	}
	return results, c.commit(cfgName, activate)
}

// UpdateZones adds members to or removes members from existing zones
func (c *CLIConnector) UpdateZones(zones map[string][]string, activate bool, op connector.ZoneMemberOp, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	log.Tracef(">>>>> UpdateZones called, fabric=%v zones=%v op=%v", c.fabric.Name, len(zones), op)
	defer log.Trace("<<<<< UpdateZones")

	zoneCmd := cmdZoneAdd
	if op == connector.ZoneMemberRemove {
		zoneCmd = cmdZoneRemove
	}

	results := make([]connector.ZoneOpResult, 0, len(zones))
	updated := false
	for name, members := range zones {
		if !activeZoneSet.HasZone(name) {
			err := zerrors.NewZoneErrorf(zerrors.NotFound, "zone %s not present in active configuration", name)
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		cmd := fmt.Sprintf("%s \"%s\", \"%s\"", zoneCmd, name, strings.Join(members, "; "))
		if _, err := c.run(cmd); err != nil {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneUpdated})
		updated = true
	}
	if !updated {
		return results, nil
	}
	return results, c.commit(activeZoneSet.Name, activate)
}

// DeleteZones removes the named zones (semicolon-joined list) from the fabric and from the
// active configuration
func (c *CLIConnector) DeleteZones(zoneNames string, activate bool, activeZoneSet *model.ActiveZoneSet) error {
	log.Tracef(">>>>> DeleteZones called, fabric=%v zones=%v", c.fabric.Name, zoneNames)
	defer log.Trace("<<<<< DeleteZones")

	deleted := false
	for _, name := range strings.Split(zoneNames, ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if activeZoneSet.Name != "" {
			cmd := fmt.Sprintf("%s \"%s\", \"%s\"", cmdCfgRemove, activeZoneSet.Name, name)
			if _, err := c.run(cmd); err != nil {
				return err
			}
		}
		if _, err := c.run(fmt.Sprintf("%s \"%s\"", cmdZoneDelete, name)); err != nil {
			return err
		}
		deleted = true
	}
	if !deleted {
		return nil
	}
	return c.commit(activeZoneSet.Name, activate)
}

// commit persists the pending transaction, activating it when requested
func (c *CLIConnector) commit(cfgName string, activate bool) error {
	if activate && cfgName != "" {
		_, err := c.run(fmt.Sprintf("%s \"%s\"", cmdCfgEnable, cfgName))
		return err
	}
	_, err := c.run(cmdCfgSave)
	return err
}

// IsSupportedFirmware checks the Fabric OS version; zoning operations need v6.4 or later
func (c *CLIConnector) IsSupportedFirmware() (bool, error) {
	log.Tracef(">>>>> IsSupportedFirmware called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< IsSupportedFirmware")

	output, err := c.run(cmdVersion)
	if err != nil {
		return false, err
	}
	major, minor, found := parseFirmwareVersion(output)
	if !found {
		return false, zerrors.NewZoneErrorf(zerrors.UnsupportedFirmware, "could not determine firmware version for fabric %s", c.fabric.Name)
	}
	return major > 6 || (major == 6 && minor >= 4), nil
}

// Cleanup releases the SSH session; safe to call multiple times
func (c *CLIConnector) Cleanup() error {
	log.Tracef(">>>>> Cleanup called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< Cleanup")

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func firstWord(cmd string) string {
	if fields := strings.Fields(cmd); len(fields) > 0 {
		return fields[0]
	}
	return cmd
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
