package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigscout/api"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRenderConfig(t *testing.T) {
	ConfigureLogging(false, ioutil.Discard)

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "tally.json", `{"api_key":"key","api_secret":"secret","algos":["x11"],"timeout":"3s"}`},
		{"yaml", "tally.yaml", "api_key: key\napi_secret: secret\nalgos: [x11]\ntimeout: 3s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := RenderConfig(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, "key", cfg.APIKey)
			assert.Equal(t, "secret", cfg.APISecret)
			assert.Equal(t, []string{"x11"}, cfg.Algos)
			assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
			assert.Equal(t, api.DefaultBaseURL, cfg.BaseURL)

			timeout, err := cfg.RequestTimeout()
			require.NoError(t, err)
			assert.Equal(t, 3*time.Second, timeout)
		})
	}
}

func TestRenderConfig_Errors(t *testing.T) {
	ConfigureLogging(false, ioutil.Discard)

	_, err := RenderConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	_, err = RenderConfig(writeConfig(t, "broken.json", `{"api_key":`))
	assert.Error(t, err)
}

func TestRenderConfig_Defaults(t *testing.T) {
	cfg, err := RenderConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultAlgos, cfg.Algos)
	assert.Error(t, cfg.Validate(), "credentials are required")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MRR_API_KEY":     "env-key",
		"MRR_API_SECRET":  "env-secret",
		"MRR_BASE_URL":    "http://localhost:9999",
		"RIGSCOUT_LISTEN": ":8080",
		"RIGSCOUT_ALGOS":  "scrypt, x11 ,,sha256",
	}
	cfg := defaultConfig()
	cfg.APIKey = "file-key"
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "env-secret", cfg.APISecret)
	assert.Equal(t, "http://localhost:9999", cfg.BaseURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, []string{"scrypt", "x11", "sha256"}, cfg.Algos)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	good := defaultConfig()
	good.APIKey, good.APISecret = "k", "s"
	require.NoError(t, good.Validate())

	noAlgos := good
	noAlgos.Algos = nil
	assert.Error(t, noAlgos.Validate())

	badTimeout := good
	badTimeout.Timeout = "soon"
	assert.Error(t, badTimeout.Validate())

	negative := good
	negative.Timeout = "-1s"
	assert.Error(t, negative.Validate())
}

func TestLoadConfig_WarnsOnUnknownAlgo(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogging(false, &buf)
	defer ConfigureLogging(false, os.Stdout)

	t.Setenv("MRR_API_KEY", "k")
	t.Setenv("MRR_API_SECRET", "s")
	t.Setenv("RIGSCOUT_ALGOS", "scrypt,ethash")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"scrypt", "ethash"}, cfg.Algos)
	assert.Contains(t, buf.String(), "ethash")
	assert.NotContains(t, buf.String(), "Algorithm scrypt")
}

func TestConfigureLogging(t *testing.T) {
	ConfigureLogging(true, ioutil.Discard)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	ConfigureLogging(false, ioutil.Discard)
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
