// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package brocade

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hpe-storage/fc-zone-libs/config"
	"github.com/hpe-storage/fc-zone-libs/connectivity"
	"github.com/hpe-storage/fc-zone-libs/connector"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	uuid "github.com/satori/go.uuid"
)

const (
	defaultHTTPPort  = 80
	defaultHTTPSPort = 443

	loginURI           = "/rest/login"
	logoutURI          = "/rest/logout"
	definedZoningURI   = "/rest/running/zoning/defined-configuration"
	effectiveZoningURI = "/rest/running/zoning/effective-configuration"
	nameserverURI      = "/rest/running/brocade-name-server/fibrechannel-name-server"
	switchURI          = "/rest/running/switch/fibrechannel-switch"

	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"
)

func init() {
	connector.Register(model.ProtocolHTTP, newHTTPConnector)
	connector.Register(model.ProtocolREST, newRESTConnector)
}

func newHTTPConnector(fabric *config.FabricConfig) (connector.Connector, error) {
	return newRESTSession(fabric, "http", defaultHTTPPort)
}

func newRESTConnector(fabric *config.FabricConfig) (connector.Connector, error) {
	return newRESTSession(fabric, "https", defaultHTTPSPort)
}

// RESTConnector drives the Fabric OS management REST API.  One RESTConnector owns one login
// session; not safe for concurrent use.
type RESTConnector struct {
	fabric     *config.FabricConfig
	client     *connectivity.Client
	sessionKey string
}

func newRESTSession(fabric *config.FabricConfig, scheme string, defaultPort int) (connector.Connector, error) {
	log.Tracef(">>>>> newRESTSession called, fabric=%v address=%v scheme=%v", fabric.Name, fabric.Address, scheme)
	defer log.Trace("<<<<< newRESTSession")

	port := fabric.Port
	if port == 0 {
		port = defaultPort
	}
	c := &RESTConnector{
		fabric: fabric,
		client: connectivity.NewHTTPClient(fmt.Sprintf("%s://%s:%d", scheme, fabric.Address, port)),
	}
	if err := c.login(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RESTConnector) login() error {
	basic := base64.StdEncoding.EncodeToString([]byte(c.fabric.Username + ":" + c.fabric.Password))
	request := &connectivity.Request{
		Action: "POST",
		Path:   loginURI,
		Header: map[string]string{authorizationHeader: "Basic " + basic},
	}
	if _, err := c.client.DoJSON(request); err != nil {
		return zerrors.NewZoneError(zerrors.ConnectionFailed, err)
	}
	c.sessionKey = request.ResponseHeaders.Get(authorizationHeader)
	if c.sessionKey == "" {
		return zerrors.NewZoneError(zerrors.ConnectionFailed, "switch did not return a session key")
	}
	return nil
}

// header carries the session key plus a request id for switch-side audit correlation
func (c *RESTConnector) header() map[string]string {
	return map[string]string{
		authorizationHeader: c.sessionKey,
		requestIDHeader:     uuid.NewV4().String(),
	}
}

// Wire format of /rest/running/zoning resources
type restZone struct {
	Name    string `json:"zone-name"`
	Members struct {
		Entries []string `json:"entry-name"`
	} `json:"member-entry"`
}

type definedConfiguration struct {
	Response struct {
		DefinedConfiguration struct {
			Zones []restZone `json:"zone"`
		} `json:"defined-configuration"`
	} `json:"Response"`
}

type effectiveConfiguration struct {
	Response struct {
		EffectiveConfiguration struct {
			CfgName      string     `json:"cfg-name"`
			Checksum     string     `json:"checksum"`
			EnabledZones []restZone `json:"enabled-zone"`
		} `json:"effective-configuration"`
	} `json:"Response"`
}

type nameserverResponse struct {
	Response struct {
		Devices []struct {
			PortName string `json:"port-name"`
		} `json:"fibrechannel-name-server"`
	} `json:"Response"`
}

type switchResponse struct {
	Response struct {
		Switches []struct {
			FirmwareVersion string `json:"firmware-version"`
		} `json:"fibrechannel-switch"`
	} `json:"Response"`
}

// GetActiveZoneSet reads the effective zoning configuration
func (c *RESTConnector) GetActiveZoneSet() (*model.ActiveZoneSet, error) {
	log.Tracef(">>>>> GetActiveZoneSet called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< GetActiveZoneSet")

	var effective effectiveConfiguration
	request := &connectivity.Request{Action: "GET", Path: effectiveZoningURI, Header: c.header(), Response: &effective}
	if _, err := c.client.DoJSON(request); err != nil {
		return nil, zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
	}

	azs := &model.ActiveZoneSet{
		Name:  effective.Response.EffectiveConfiguration.CfgName,
		Zones: make(map[string][]string),
	}
	for _, zone := range effective.Response.EffectiveConfiguration.EnabledZones {
		azs.Zones[zone.Name] = model.ColonWwnList(zone.Members.Entries)
	}
	return azs, nil
}

// GetNameserverInfo returns the port WWNs logged into this fabric
func (c *RESTConnector) GetNameserverInfo() ([]string, error) {
	log.Tracef(">>>>> GetNameserverInfo called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< GetNameserverInfo")

	var nameserver nameserverResponse
	request := &connectivity.Request{Action: "GET", Path: nameserverURI, Header: c.header(), Response: &nameserver}
	if _, err := c.client.DoJSON(request); err != nil {
		return nil, zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
	}

	var wwns []string
	for _, device := range nameserver.Response.Devices {
		if model.IsWwn(device.PortName) {
			wwns = append(wwns, model.ColonWwn(device.PortName))
		}
	}
	return dedupe(wwns), nil
}

// AddZones creates the queued zones via the defined-configuration resource
func (c *RESTConnector) AddZones(zones map[string][]string, activate bool, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	log.Tracef(">>>>> AddZones called, fabric=%v zones=%v activate=%v", c.fabric.Name, len(zones), activate)
	defer log.Trace("<<<<< AddZones")

	results := make([]connector.ZoneOpResult, 0, len(zones))
	mutated := false
	for name, members := range zones {
		if activeZoneSet.HasZone(name) {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneAlreadyExists})
			continue
		}
		if err := c.putZone("POST", name, members); err != nil {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneCreated})
		mutated = true
	}
	if !mutated {
		return results, nil
	}
	return results, c.commit(activeZoneSet.Name, activate)
}

// UpdateZones rewrites the member list of existing zones.  The REST zone resource replaces
// membership wholesale, so the member delta computed by the driver is applied to the snapshot
// before the PATCH.
func (c *RESTConnector) UpdateZones(zones map[string][]string, activate bool, op connector.ZoneMemberOp, activeZoneSet *model.ActiveZoneSet) ([]connector.ZoneOpResult, error) {
	log.Tracef(">>>>> UpdateZones called, fabric=%v zones=%v op=%v", c.fabric.Name, len(zones), op)
	defer log.Trace("<<<<< UpdateZones")

	results := make([]connector.ZoneOpResult, 0, len(zones))
	mutated := false
	for name, delta := range zones {
		if !activeZoneSet.HasZone(name) {
			err := zerrors.NewZoneErrorf(zerrors.NotFound, "zone %s not present in active configuration", name)
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		members := applyMemberDelta(activeZoneSet.ZoneMembers(name), delta, op)
		if err := c.putZone("PATCH", name, members); err != nil {
			results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneOpFailed, Err: err})
			return results, err
		}
		results = append(results, connector.ZoneOpResult{Zone: name, Status: connector.ZoneUpdated})
		mutated = true
	}
	if !mutated {
		return results, nil
	}
	return results, c.commit(activeZoneSet.Name, activate)
}

// DeleteZones removes the named zones (semicolon-joined list)
func (c *RESTConnector) DeleteZones(zoneNames string, activate bool, activeZoneSet *model.ActiveZoneSet) error {
	log.Tracef(">>>>> DeleteZones called, fabric=%v zones=%v", c.fabric.Name, zoneNames)
	defer log.Trace("<<<<< DeleteZones")

	deleted := false
	for _, name := range strings.Split(zoneNames, ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		request := &connectivity.Request{
			Action: "DELETE",
			Path:   definedZoningURI + "/zone/zone-name/" + name,
			Header: c.header(),
		}
		if _, err := c.client.DoJSON(request); err != nil {
			return zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
		}
		deleted = true
	}
	if !deleted {
		return nil
	}
	return c.commit(activeZoneSet.Name, activate)
}

func (c *RESTConnector) putZone(action, name string, members []string) error {
	zone := restZone{Name: name}
	zone.Members.Entries = members
	payload := map[string]interface{}{"zone": []restZone{zone}}
	request := &connectivity.Request{
		Action:  action,
		Path:    definedZoningURI + "/zone/zone-name/" + name,
		Header:  c.header(),
		Payload: payload,
	}
	if _, err := c.client.DoJSON(request); err != nil {
		return zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
	}
	return nil
}

// commit saves the pending transaction; cfg-action 1 saves only, naming a cfg enables it
func (c *RESTConnector) commit(cfgName string, activate bool) error {
	payload := map[string]interface{}{"cfg-action": 1}
	if activate && cfgName != "" {
		payload = map[string]interface{}{"cfg-name": cfgName, "cfg-action": 2}
	}
	request := &connectivity.Request{
		Action:  "PATCH",
		Path:    effectiveZoningURI,
		Header:  c.header(),
		Payload: map[string]interface{}{"effective-configuration": payload},
	}
	if _, err := c.client.DoJSON(request); err != nil {
		return zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
	}
	return nil
}

// IsSupportedFirmware checks the Fabric OS version; zoning operations need v6.4 or later
func (c *RESTConnector) IsSupportedFirmware() (bool, error) {
	log.Tracef(">>>>> IsSupportedFirmware called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< IsSupportedFirmware")

	var switches switchResponse
	request := &connectivity.Request{Action: "GET", Path: switchURI, Header: c.header(), Response: &switches}
	if _, err := c.client.DoJSON(request); err != nil {
		return false, zerrors.NewZoneError(zerrors.ZoneOperationFailed, err)
	}
	for _, sw := range switches.Response.Switches {
		major, minor, found := parseFirmwareVersion("Fabric OS:  " + sw.FirmwareVersion)
		if found {
			return major > 6 || (major == 6 && minor >= 4), nil
		}
	}
	return false, zerrors.NewZoneErrorf(zerrors.UnsupportedFirmware, "could not determine firmware version for fabric %s", c.fabric.Name)
}

// Cleanup logs out of the management session; safe to call multiple times
func (c *RESTConnector) Cleanup() error {
	log.Tracef(">>>>> Cleanup called, fabric=%v", c.fabric.Name)
	defer log.Trace("<<<<< Cleanup")

	if c.sessionKey == "" {
		return nil
	}
	request := &connectivity.Request{Action: "POST", Path: logoutURI, Header: c.header()}
	_, err := c.client.DoJSON(request)
	c.sessionKey = ""
	return err
}

func applyMemberDelta(current, delta []string, op connector.ZoneMemberOp) []string {
	if op == connector.ZoneMemberAdd {
		return dedupe(append(append([]string{}, current...), delta...))
	}
	removing := make(map[string]bool, len(delta))
	for _, member := range delta {
		removing[member] = true
	}
	out := make([]string, 0, len(current))
	for _, member := range current {
		if !removing[member] {
			out = append(out, member)
		}
	}
	return out
}
