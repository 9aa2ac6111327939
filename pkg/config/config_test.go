package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/primitive"
)

type Badge struct {
	ID    string
	Label string `doc:"label"`
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, "ksuid", config.Codec.IDGenerator)
	assert.True(t, config.Codec.UseDiscriminator)
	assert.False(t, config.Storage.SyncWrites)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		expectedConfig := &Config{
			DataDir: "/custom/data",
			Codec: Codec{
				IDGenerator:      "uuid",
				UseDiscriminator: false,
			},
			Storage: Storage{
				SyncWrites: true,
			},
			Logging: Logging{
				Level: "debug",
			},
		}

		err := SaveConfig(expectedConfig, configPath)
		require.NoError(t, err)

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "partial.yaml")
		err := os.WriteFile(configPath, []byte("data_dir: /elsewhere\n"), 0644)
		require.NoError(t, err)

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "/elsewhere", loadedConfig.DataDir)
		assert.Equal(t, "ksuid", loadedConfig.Codec.IDGenerator)
		assert.True(t, loadedConfig.Codec.UseDiscriminator)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("load invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "values.yaml")
		err := os.WriteFile(configPath, []byte("codec:\n  id_generator: snowflake\n"), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		require.Error(t, err)
		assert.True(t, errors.Is(err, codec.ErrConfiguration))
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := DefaultConfig()

	err := SaveConfig(config, configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "empty generator means ksuid", modify: func(c *Config) { c.Codec.IDGenerator = "" }},
		{name: "empty level means info", modify: func(c *Config) { c.Logging.Level = "" }},
		{name: "empty data dir", modify: func(c *Config) { c.DataDir = "" }, wantErr: "data_dir"},
		{name: "unknown generator", modify: func(c *Config) { c.Codec.IDGenerator = "serial" }, wantErr: "unknown id generator"},
		{name: "unknown level", modify: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.modify(config)
			err := config.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestIDGenerator(t *testing.T) {
	config := DefaultConfig()
	gen, err := config.IDGenerator()
	require.NoError(t, err)
	assert.IsType(t, ksuid.KSUID{}, gen.Generate())

	config.Codec.IDGenerator = "UUID"
	gen, err = config.IDGenerator()
	require.NoError(t, err)
	assert.IsType(t, uuid.UUID{}, gen.Generate())
}

func TestProviderBuilder(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte("codec:\n  id_generator: uuid\n  use_discriminator: false\n"), 0644)
	require.NoError(t, err)
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	builder, err := config.ProviderBuilder()
	require.NoError(t, err)
	registry := primitive.NewDefaultRegistry(builder.RegisterValues(Badge{}).Build())
	c, err := registry.Lookup(reflect.TypeFor[Badge]())
	require.NoError(t, err)
	ec := c.(*codec.EntityCodec)

	badge := &Badge{Label: "first"}
	require.NoError(t, ec.EnsureIdentifier(badge))
	_, err = uuid.Parse(badge.ID)
	assert.NoError(t, err, "uuid config assigns uuid identifiers, got %q", badge.ID)

	raw, err := ec.Marshal(badge)
	require.NoError(t, err)
	_, has := raw.Lookup("_t")
	assert.False(t, has, "use_discriminator: false drops _t")

	t.Run("defaults", func(t *testing.T) {
		builder, err := DefaultConfig().ProviderBuilder()
		require.NoError(t, err)
		registry := primitive.NewDefaultRegistry(builder.RegisterValues(Badge{}).Build())
		c, err := registry.Lookup(reflect.TypeFor[Badge]())
		require.NoError(t, err)
		ec := c.(*codec.EntityCodec)

		badge := &Badge{}
		require.NoError(t, ec.EnsureIdentifier(badge))
		_, err = ksuid.Parse(badge.ID)
		assert.NoError(t, err)

		raw, err := ec.Marshal(badge)
		require.NoError(t, err)
		_, has := raw.Lookup("_t")
		assert.True(t, has)
	})

	t.Run("invalid generator", func(t *testing.T) {
		config := DefaultConfig()
		config.Codec.IDGenerator = "serial"
		_, err := config.ProviderBuilder()
		assert.True(t, errors.Is(err, codec.ErrConfiguration))
	})
}

func TestLogLevel(t *testing.T) {
	testCases := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "WARN", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "", want: slog.LevelInfo},
	}
	for _, tc := range testCases {
		config := DefaultConfig()
		config.Logging.Level = tc.level
		got, err := config.LogLevel()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.level)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "docmap")
	assert.Contains(t, path, "config.yaml")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	err := os.WriteFile(existingPath, []byte("test"), 0644)
	require.NoError(t, err)

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := &Config{
		DataDir: "/test/data",
		Codec:   Codec{IDGenerator: "uuid", UseDiscriminator: true},
		Storage: Storage{SyncWrites: true},
		Logging: Logging{Level: "warn"},
	}

	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id_generator: uuid")

	var unmarshalled Config
	err = yaml.Unmarshal(data, &unmarshalled)
	require.NoError(t, err)

	assert.Equal(t, config, &unmarshalled)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	// A regular file can not hold the config directory
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	err := SaveConfig(config, filepath.Join(blocker, "config.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
