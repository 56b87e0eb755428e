package config

// DefaultPath is where the provisioners look for overrides when neither
// --config nor HOSTPROV_CONFIG is set.
const DefaultPath = "/etc/hostprov/defaults.toml"

// EnvConfigPath names the environment variable that points at a defaults file.
const EnvConfigPath = "HOSTPROV_CONFIG"

type Defaults struct {
	MySQL MySQLConfig `toml:"mysql"`
	LXD   LXDConfig   `toml:"lxd"`
}

type MySQLConfig struct {
	ConfigFile  string   `toml:"config_file"`
	Section     string   `toml:"section"`
	Packages    []string `toml:"packages"`
	Service     string   `toml:"service"`
	ReceiptFile string   `toml:"receipt_file"`
}

type LXDConfig struct {
	Prerequisites []string      `toml:"prerequisites"`
	Snap          string        `toml:"snap"`
	Channel       string        `toml:"channel"`
	Group         string        `toml:"group"`
	WaitTimeout   int           `toml:"wait_timeout"`
	HTTPSAddress  string        `toml:"https_address"`
	Network       NetworkConfig `toml:"network"`
	Storage       StorageConfig `toml:"storage"`
	Profile       string        `toml:"profile"`
}

type NetworkConfig struct {
	Name        string `toml:"name"`
	IPv4Address string `toml:"ipv4_address"`
	DHCPRange   string `toml:"dhcp_range"`
}

type StorageConfig struct {
	Name   string `toml:"name"`
	Driver string `toml:"driver"`
}

// BuiltinDefaults returns the values used when no defaults file is present.
func BuiltinDefaults() Defaults {
	return Defaults{
		MySQL: MySQLConfig{
			ConfigFile:  "/etc/mysql/mysql.conf.d/mysqld.cnf",
			Section:     "mysqld",
			Packages:    []string{"mysql-server"},
			Service:     "mysql",
			ReceiptFile: "/var/lib/hostprov/mysql.toml",
		},
		LXD: LXDConfig{
			Prerequisites: []string{"snapd"},
			Snap:          "lxd",
			Group:         "lxd",
			WaitTimeout:   60,
			HTTPSAddress:  "[::]:8443",
			Network: NetworkConfig{
				Name:        "lxdbr0",
				IPv4Address: "10.10.10.1/24",
				DHCPRange:   "10.10.10.100-10.10.10.254",
			},
			Storage: StorageConfig{
				Name:   "default",
				Driver: "dir",
			},
			Profile: "default",
		},
	}
}
