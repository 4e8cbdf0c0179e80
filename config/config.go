// Copyright 2021 Hewlett Packard Enterprise Development LP

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/mitchellh/mapstructure"
)

const (
	// Top level sections of the zoning configuration file
	zoneManagerKey = "zone_manager"
	fabricsKey     = "fabrics"

	// RefCountStoreMemory - per-process in-memory connection reference counting
	RefCountStoreMemory = "memory"
	// RefCountStoreEtcd - durable reference counting backed by etcd
	RefCountStoreEtcd = "etcd"
	// RefCountStoreNone - no reference counting; every add zones and every delete unzones
	RefCountStoreNone = "none"
)

// FabricConfig describes one SAN management domain.  Loaded once at startup and immutable for
// the process lifetime; there is no hot reload.
type FabricConfig struct {
	Name            string `mapstructure:"-"`
	Protocol        string `mapstructure:"protocol"`
	Address         string `mapstructure:"address"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ZoningPolicy    string `mapstructure:"zoning_policy"`
	ZoneActivate    bool   `mapstructure:"zone_activate"`
	ZoneNamePrefix  string `mapstructure:"zone_name_prefix"`
	VirtualFabricID string `mapstructure:"virtual_fabric_id"`
}

// zoneManagerSettings is the global section of the configuration file
type zoneManagerSettings struct {
	DefaultZoningPolicy string   `mapstructure:"default_zoning_policy"`
	FabricNames         string   `mapstructure:"fabric_names"`
	SouthBoundConnector string   `mapstructure:"south_bound_connector"`
	RefCountStore       string   `mapstructure:"refcount_store"`
	EtcdEndpoints       []string `mapstructure:"etcd_endpoints"`
}

// Config is the immutable zoning configuration handed to the zone manager at construction time
type Config struct {
	DefaultZoningPolicy string
	SouthBoundConnector string
	RefCountStore       string
	EtcdEndpoints       []string
	FabricNames         []string
	Fabrics             map[string]*FabricConfig
}

// LoadConfig reads the JSON zoning configuration from the given path
func LoadConfig(path string) (*Config, error) {
	log.Tracef(">>>>> LoadConfig called, path=%v", path)
	defer log.Trace("<<<<< LoadConfig")

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed zoning configuration %s: %v", path, err)
	}
	return parseConfig(raw)
}

func parseConfig(raw map[string]interface{}) (*Config, error) {
	settings := zoneManagerSettings{}
	if section, found := raw[zoneManagerKey]; found {
		if err := mapstructure.Decode(section, &settings); err != nil {
			return nil, fmt.Errorf("invalid %s section: %v", zoneManagerKey, err)
		}
	}
	if settings.DefaultZoningPolicy == "" {
		settings.DefaultZoningPolicy = model.ZoningPolicyInitiatorTarget
	}
	if !validPolicy(settings.DefaultZoningPolicy) {
		return nil, fmt.Errorf("unknown default zoning policy %q", settings.DefaultZoningPolicy)
	}
	if settings.SouthBoundConnector == "" {
		settings.SouthBoundConnector = model.ProtocolSSH
	}
	if settings.RefCountStore == "" {
		settings.RefCountStore = RefCountStoreMemory
	}
	switch settings.RefCountStore {
	case RefCountStoreMemory, RefCountStoreEtcd, RefCountStoreNone:
	default:
		return nil, fmt.Errorf("unknown refcount store %q", settings.RefCountStore)
	}

	config := &Config{
		DefaultZoningPolicy: settings.DefaultZoningPolicy,
		SouthBoundConnector: settings.SouthBoundConnector,
		RefCountStore:       settings.RefCountStore,
		EtcdEndpoints:       settings.EtcdEndpoints,
		Fabrics:             make(map[string]*FabricConfig),
	}

	for _, name := range strings.Split(settings.FabricNames, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			config.FabricNames = append(config.FabricNames, name)
		}
	}
	if len(config.FabricNames) == 0 {
		return nil, fmt.Errorf("no fabric names configured")
	}

	fabricSections := map[string]interface{}{}
	if section, found := raw[fabricsKey]; found {
		var ok bool
		if fabricSections, ok = section.(map[string]interface{}); !ok {
			return nil, fmt.Errorf("invalid %s section", fabricsKey)
		}
	}

	for _, name := range config.FabricNames {
		section, found := fabricSections[name]
		if !found {
			return nil, fmt.Errorf("fabric %s is named in fabric_names but has no configuration", name)
		}
		fabric := &FabricConfig{Name: name}
		if err := mapstructure.Decode(section, fabric); err != nil {
			return nil, fmt.Errorf("invalid configuration for fabric %s: %v", name, err)
		}
		if err := fabric.validate(settings); err != nil {
			return nil, err
		}
		config.Fabrics[name] = fabric
	}
	return config, nil
}

func (f *FabricConfig) validate(settings zoneManagerSettings) error {
	if f.Address == "" {
		return fmt.Errorf("fabric %s has no southbound address", f.Name)
	}
	if f.Username == "" || f.Password == "" {
		return fmt.Errorf("fabric %s has no southbound credentials", f.Name)
	}
	if f.Protocol == "" {
		f.Protocol = settings.SouthBoundConnector
	}
	switch f.Protocol {
	case model.ProtocolSSH, model.ProtocolHTTP, model.ProtocolREST:
	default:
		return fmt.Errorf("fabric %s has unknown southbound protocol %q", f.Name, f.Protocol)
	}
	if f.ZoningPolicy == "" {
		f.ZoningPolicy = settings.DefaultZoningPolicy
	}
	if !validPolicy(f.ZoningPolicy) {
		return fmt.Errorf("fabric %s has unknown zoning policy %q", f.Name, f.ZoningPolicy)
	}
	return nil
}

func validPolicy(policy string) bool {
	return policy == model.ZoningPolicyInitiatorTarget || policy == model.ZoningPolicyInitiator
}

// Fabric returns the configuration of the named fabric
func (c *Config) Fabric(name string) (*FabricConfig, error) {
	fabric, found := c.Fabrics[name]
	if !found {
		return nil, fmt.Errorf("fabric %s is not configured", name)
	}
	return fabric, nil
}
