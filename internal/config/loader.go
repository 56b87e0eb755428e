package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrUnknownKeys is returned when a defaults file contains keys that map to no setting.
var ErrUnknownKeys = errors.New("unknown configuration keys")

type ConfigLoader struct {
	defaults Defaults
	source   string
}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{defaults: BuiltinDefaults()}
}

// ResolvePath picks the defaults file: explicit flag, then HOSTPROV_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// LoadDefaults overlays the TOML file at path onto the built-in defaults.
// A missing file is not an error; the built-in defaults stay in effect.
func (cl *ConfigLoader) LoadDefaults(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cl.source = "builtin"
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	defaults := BuiltinDefaults()
	meta, err := toml.Decode(string(content), &defaults)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return fmt.Errorf("%s: %w: %s", path, ErrUnknownKeys, strings.Join(keys, ", "))
	}

	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}

	cl.defaults = defaults
	cl.source = path
	return nil
}

func (cl *ConfigLoader) GetDefaults() Defaults {
	return cl.defaults
}

// Source reports where the active defaults came from: a file path or "builtin".
func (cl *ConfigLoader) Source() string {
	if cl.source == "" {
		return "builtin"
	}
	return cl.source
}

// Validate checks the settings the provisioners cannot run without.
func (d Defaults) Validate() error {
	var problems []string

	if d.MySQL.ConfigFile == "" {
		problems = append(problems, "mysql.config_file is empty")
	}
	if d.MySQL.Section == "" {
		problems = append(problems, "mysql.section is empty")
	}
	if len(d.MySQL.Packages) == 0 {
		problems = append(problems, "mysql.packages is empty")
	}
	if d.MySQL.Service == "" {
		problems = append(problems, "mysql.service is empty")
	}
	if d.LXD.Snap == "" {
		problems = append(problems, "lxd.snap is empty")
	}
	if d.LXD.Group == "" {
		problems = append(problems, "lxd.group is empty")
	}
	if d.LXD.WaitTimeout <= 0 {
		problems = append(problems, "lxd.wait_timeout must be positive")
	}
	if d.LXD.Network.Name == "" {
		problems = append(problems, "lxd.network.name is empty")
	}
	if d.LXD.Storage.Name == "" {
		problems = append(problems, "lxd.storage.name is empty")
	}
	if d.LXD.Storage.Driver == "" {
		problems = append(problems, "lxd.storage.driver is empty")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
