package cmd

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "pkgabidiff", configBaseName)
	assert.Equal(t, "pkgabidiff.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "parallel", parallelFlagName)
	assert.Equal(t, "compare.parallel", parallelConfigKey)
	assert.Equal(t, "compare.dumps_dir", dumpsDirConfigKey)
	assert.Equal(t, "compat_report", defaultReportsDir)
	assert.Equal(t, "abi_dump", defaultDumpsDir)
	assert.Equal(t, "PKGABIDIFF", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, defaultDumpsDir, viper.GetString(dumpsDirConfigKey))
	assert.Equal(t, defaultHistory, viper.GetBool(historyConfigKey))
	assert.Equal(t, defaultTUI, viper.GetBool(uiTUIKey))
	assert.Equal(t, defaultLogMaxSize, viper.GetInt(logMaxSizeKey))
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("PKGABIDIFF_COMPARE_DUMPS_DIR", "/var/cache/dumps")

	assert.Equal(t, "/var/cache/dumps", viper.GetString(dumpsDirConfigKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}

func TestConfigureLogger_Verbose(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	configureLogger(filepath.Join(t.TempDir(), "test.log"), true)

	assert.NotNil(t, globalLogger)
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}
