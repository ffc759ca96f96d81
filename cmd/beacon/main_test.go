package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/auth"
	"beacon/internal/config"
	"beacon/internal/credentials"
	"beacon/internal/storage"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "BEACON_MAC=24:6f:28:a1:0b:fe\n" +
		"BEACON_DB_PATH=" + filepath.Join(dir, "beacon.db") + "\n" +
		"BEACON_JWT_SECRET=test-secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestIdentityCommand(t *testing.T) {
	path := writeTestConfig(t)

	out := execute(t, "identity", "--config", path)

	assert.Contains(t, out, "esp_device_A10BFE")
	assert.Contains(t, out, "/devices/esp_device_A10BFE/command")
	assert.Contains(t, out, "PROV_A10BFE")
}

func TestPairingCommand(t *testing.T) {
	path := writeTestConfig(t)

	out := execute(t, "pairing", "--config", path)

	assert.Contains(t, out, `"name":"PROV_A10BFE"`)
	assert.Contains(t, out, "https://espressif.github.io/esp-jumpstart/qrcode.html?data=")
}

func TestTokenCommand(t *testing.T) {
	path := writeTestConfig(t)

	out := execute(t, "token", "--config", path, "--role", "viewer", "--subject", "panel")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	claims, err := auth.NewJWTManager(cfg.JWTSecret(), cfg.JWTExpiration(), auth.DefaultIssuer).
		ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleViewer, claims.Role)
	assert.Equal(t, "panel", claims.Subject)
}

func TestForgetCommand(t *testing.T) {
	path := writeTestConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	db, err := storage.NewBoltStorage(cfg.DBPath())
	require.NoError(t, err)
	creds := credentials.NewStore(db, nil)
	require.NoError(t, creds.Save("home", "secret"))

	out := execute(t, "forget", "--config", path)
	assert.Contains(t, out, "erased")

	_, err = creds.Load()
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}
