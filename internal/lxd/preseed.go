package lxd

import (
	"bytes"
	"fmt"

	"github.com/andreweick/hostprov/internal/config"
	"gopkg.in/yaml.v3"
)

// Preseed is the document accepted by "lxd init --preseed".
type Preseed struct {
	Config       map[string]string `yaml:"config"`
	Networks     []Network         `yaml:"networks"`
	StoragePools []StoragePool     `yaml:"storage_pools"`
	Profiles     []Profile         `yaml:"profiles"`
	Cluster      *Cluster          `yaml:"cluster"`
}

type Network struct {
	Config      map[string]string `yaml:"config"`
	Description string            `yaml:"description"`
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
}

type StoragePool struct {
	Config      map[string]string `yaml:"config"`
	Description string            `yaml:"description"`
	Name        string            `yaml:"name"`
	Driver      string            `yaml:"driver"`
}

type Profile struct {
	Config      map[string]string            `yaml:"config"`
	Description string                       `yaml:"description"`
	Devices     map[string]map[string]string `yaml:"devices"`
	Name        string                       `yaml:"name"`
}

// Cluster is always emitted as null: the preseed configures a standalone server.
type Cluster struct {
	ServerName string `yaml:"server_name"`
	Enabled    bool   `yaml:"enabled"`
}

// BuildPreseed describes one NAT bridge with DHCP and no IPv6, one storage pool,
// and a profile attaching a root disk on the pool and eth0 on the bridge.
func BuildPreseed(cfg config.LXDConfig) Preseed {
	serverConfig := map[string]string{}
	if cfg.HTTPSAddress != "" {
		serverConfig["core.https_address"] = cfg.HTTPSAddress
	}

	networkConfig := map[string]string{
		"ipv4.address": cfg.Network.IPv4Address,
		"ipv4.nat":     "true",
		"ipv4.dhcp":    "true",
		"ipv6.address": "none",
	}
	if cfg.Network.DHCPRange != "" {
		networkConfig["ipv4.dhcp.ranges"] = cfg.Network.DHCPRange
	}

	profile := cfg.Profile
	if profile == "" {
		profile = "default"
	}

	return Preseed{
		Config: serverConfig,
		Networks: []Network{{
			Config: networkConfig,
			Name:   cfg.Network.Name,
			Type:   "bridge",
		}},
		StoragePools: []StoragePool{{
			Config: map[string]string{},
			Name:   cfg.Storage.Name,
			Driver: cfg.Storage.Driver,
		}},
		Profiles: []Profile{{
			Config: map[string]string{},
			Devices: map[string]map[string]string{
				"root": {
					"path": "/",
					"pool": cfg.Storage.Name,
					"type": "disk",
				},
				"eth0": {
					"name":    "eth0",
					"network": cfg.Network.Name,
					"type":    "nic",
				},
			},
			Name: profile,
		}},
	}
}

// Marshal renders the preseed as YAML with two-space indentation.
func (p Preseed) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to marshal preseed: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal preseed: %w", err)
	}
	return buf.Bytes(), nil
}
