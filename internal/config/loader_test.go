package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoader_MissingFileUsesBuiltins(t *testing.T) {
	loader := NewConfigLoader()
	err := loader.LoadDefaults(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, BuiltinDefaults(), loader.GetDefaults())
	assert.Equal(t, "builtin", loader.Source())
}

func TestConfigLoader_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.toml")
	content := `[mysql]
service = "mysqld"

[lxd]
channel = "5.21/stable"
wait_timeout = 120

[lxd.network]
name = "br-lab"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewConfigLoader()
	require.NoError(t, loader.LoadDefaults(path))

	defaults := loader.GetDefaults()
	assert.Equal(t, "mysqld", defaults.MySQL.Service)
	assert.Equal(t, "5.21/stable", defaults.LXD.Channel)
	assert.Equal(t, 120, defaults.LXD.WaitTimeout)
	assert.Equal(t, "br-lab", defaults.LXD.Network.Name)

	// Untouched keys keep their built-in values
	assert.Equal(t, "/etc/mysql/mysql.conf.d/mysqld.cnf", defaults.MySQL.ConfigFile)
	assert.Equal(t, "10.10.10.1/24", defaults.LXD.Network.IPv4Address)
	assert.Equal(t, "dir", defaults.LXD.Storage.Driver)
	assert.Equal(t, path, loader.Source())
}

func TestConfigLoader_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mysql]\nbind = \"0.0.0.0\"\n"), 0644))

	loader := NewConfigLoader()
	err := loader.LoadDefaults(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKeys))
	assert.Contains(t, err.Error(), "mysql.bind")
	assert.Equal(t, BuiltinDefaults(), loader.GetDefaults())
}

func TestConfigLoader_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lxd]\nwait_timeout = 0\n"), 0644))

	err := NewConfigLoader().LoadDefaults(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait_timeout")
}

func TestConfigLoader_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mysql\n"), 0644))

	err := NewConfigLoader().LoadDefaults(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))

	t.Setenv(EnvConfigPath, "/tmp/env.toml")
	assert.Equal(t, "/tmp/env.toml", ResolvePath(""))
	assert.Equal(t, "/tmp/flag.toml", ResolvePath("/tmp/flag.toml"))
}
