package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("FOTA_STORAGE_ROOT", filepath.Join(root, "firmware"))
	t.Setenv("FOTA_STORAGE_AUTH_ROOT", filepath.Join(root, "auth"))
	t.Setenv("FOTA_AUTH_ADMIN_PASSWORD", "pw")
	t.Setenv("FOTA_PUSH_STEPS", "3")
	t.Setenv("FOTA_PUSH_STEP_INTERVAL_MS", "1")
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewFotactlCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestNewFotactlCommand(t *testing.T) {
	assert := assert.New(t)
	cmd := NewFotactlCommand(&bytes.Buffer{}, &bytes.Buffer{})

	assert.Equal("fotactl", cmd.Use)
	assert.Equal(fotactlLongDescription, cmd.Long)

	flag := cmd.PersistentFlags().Lookup("config")
	assert.NotNil(flag)
	assert.Equal("c", flag.Shorthand)
	assert.Equal("", flag.DefValue)

	flag = cmd.PersistentFlags().Lookup("verbose")
	assert.NotNil(flag)
	assert.Equal("false", flag.DefValue)

	for _, path := range [][]string{
		{"targets", "list"}, {"targets", "create"},
		{"versions", "list"}, {"versions", "add"},
		{"devices", "list"}, {"devices", "add"}, {"devices", "update"},
		{"push"},
		{"users", "list"}, {"users", "add"}, {"users", "verify"},
	} {
		sub, _, err := cmd.Find(path)
		assert.NoError(err, path)
		assert.NotNil(sub.RunE, path)
	}

	push, _, err := cmd.Find([]string{"push"})
	require.NoError(t, err)
	assert.NotNil(push.Flag("as"))
	assert.Equal("200ms", push.Flag("poll").DefValue)
}

func TestInventoryCommands(t *testing.T) {
	root := setupEnv(t)
	v1 := writeFile(t, root, "ecu-1.bin", "one")
	v2 := writeFile(t, root, "ecu-2.bin", "two")

	out, err := run(t, "targets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no target types")

	out, err = run(t, "targets", "create", "ECU-X", "--version", "1.0.0", "--file", v1)
	require.NoError(t, err)
	assert.Contains(t, out, "created ECU-X 1.0.0 (ecu-1.bin, 3 bytes")

	_, err = run(t, "targets", "create", "ECU-X", "--version", "1.0.0", "--file", v1)
	assert.Error(t, err)

	_, err = run(t, "targets", "create", "ECU-Y", "--file", v1)
	assert.Error(t, err, "--version is required")

	out, err = run(t, "versions", "add", "ECU-X", "1.10.0", "-f", v2)
	require.NoError(t, err)
	assert.Contains(t, out, "added ECU-X 1.10.0")
	_, err = run(t, "versions", "add", "ECU-X", "1.2.0", "-f", v2)
	require.NoError(t, err)

	out, err = run(t, "versions", "list", "ECU-X")
	require.NoError(t, err)
	i1, i2, i10 := bytes.Index([]byte(out), []byte("1.0.0")), bytes.Index([]byte(out), []byte("1.2.0")), bytes.Index([]byte(out), []byte("1.10.0"))
	assert.True(t, i1 < i2 && i2 < i10, out)

	out, err = run(t, "targets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ECU-X")
	assert.Contains(t, out, "1.10.0")
}

func TestDeviceAndPushCommands(t *testing.T) {
	root := setupEnv(t)
	v1 := writeFile(t, root, "ecu-1.bin", "one")
	v2 := writeFile(t, root, "ecu-2.bin", "two")
	_, err := run(t, "targets", "create", "ECU-X", "--version", "1.0.0", "--file", v1)
	require.NoError(t, err)
	_, err = run(t, "versions", "add", "ECU-X", "2.0.0", "--file", v2)
	require.NoError(t, err)

	out, err := run(t, "devices", "add", "ECU-X", "SN001", "--ip", "10.0.0.5", "--version", "1.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "as Sl No 1")
	out, err = run(t, "devices", "add", "ECU-X", "SN002", "--version", "1.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "as Sl No 2")

	_, err = run(t, "devices", "add", "ECU-Q", "SN003")
	assert.Error(t, err)

	out, err = run(t, "push", "ECU-X", "SN001", "2.0.0", "--as", "ops", "--poll", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed: SN001 now on 2.0.0")

	_, err = run(t, "push", "ECU-X", "SN404", "2.0.0")
	assert.Error(t, err)

	out, err = run(t, "devices", "update", "ECU-X", "SN002", "2.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "updated SN002 to 2.0.0")
	out, err = run(t, "devices", "update", "ECU-X", "SN999", "2.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger unchanged")

	out, err = run(t, "devices", "list", "ECU-X")
	require.NoError(t, err)
	assert.Contains(t, out, "SN001")
	assert.Contains(t, out, "Updated")
	assert.Contains(t, out, "10.0.0.5")
}

func TestUserCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "users", "verify", "admin", "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "admin: ok (admin)\n", out)

	_, err = run(t, "users", "verify", "admin", "--password", "bad")
	assert.Error(t, err)

	out, err = run(t, "users", "add", "op", "-p", "oppw")
	require.NoError(t, err)
	assert.Equal(t, "user op added\n", out)

	out, err = run(t, "users", "verify", "op", "-p", "oppw")
	require.NoError(t, err)
	assert.Equal(t, "op: ok\n", out)

	out, err = run(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "operator")

	_, err = run(t, "users", "add", "x")
	assert.Error(t, err, "--password is required")
}
