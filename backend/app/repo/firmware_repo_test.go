package repo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"fota-manager/backend/app/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTargetTypesMissingRoot(t *testing.T) {
	r := NewFirmwareRepository(NewLayout(filepath.Join(t.TempDir(), "absent")))
	names, err := r.ListTargetTypes()
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)
}

func TestCreateTargetAndStoreBinary(t *testing.T) {
	layout := NewLayout(t.TempDir())
	r := NewFirmwareRepository(layout)

	require.NoError(t, r.CreateTarget("ECU-X"))
	assert.ErrorIs(t, r.CreateTarget("ECU-X"), apperr.ErrAlreadyExists)

	blob := []byte("firmware-blob")
	bin, err := r.StoreBinary("ECU-X", "1.0.0", "fw.bin", bytes.NewReader(blob))
	require.NoError(t, err)
	sum := sha256.Sum256(blob)
	assert.Equal(t, hex.EncodeToString(sum[:]), bin.SHA256)
	assert.EqualValues(t, len(blob), bin.Size)
	assert.Equal(t, filepath.Join(layout.Root, "ECU-X", "1.0.0", "fw.bin"), bin.Path)

	got, err := os.ReadFile(bin.Path)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	_, err = r.StoreBinary("ECU-X", "1.0.0", "other.bin", bytes.NewReader(blob))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = r.StoreBinary("ECU-Y", "1.0.0", "fw.bin", bytes.NewReader(blob))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	targets, err := r.ListTargetTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{"ECU-X"}, targets)

	versions, err := r.ListVersions("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0"}, versions)

	_, err = r.ListVersions("ECU-Y")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBinaryInfo(t *testing.T) {
	r := NewFirmwareRepository(NewLayout(t.TempDir()))
	require.NoError(t, r.CreateTarget("ECU-X"))
	_, err := r.StoreBinary("ECU-X", "1.0.0", "fw.bin", bytes.NewReader([]byte("abc")))
	require.NoError(t, err)

	bin, err := r.Binary("ECU-X", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "fw.bin", bin.FileName)
	assert.EqualValues(t, 3, bin.Size)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", bin.SHA256)

	_, err = r.Binary("ECU-X", "9.9.9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListSkipsFilesAndHiddenDirs(t *testing.T) {
	layout := NewLayout(t.TempDir())
	r := NewFirmwareRepository(layout)
	require.NoError(t, os.MkdirAll(filepath.Join(layout.Root, ".fota"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.Root, "notes.txt"), nil, 0o644))
	require.NoError(t, r.CreateTarget("B"))
	require.NoError(t, r.CreateTarget("A"))

	names, err := r.ListTargetTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("target type", "ECU-X"))
	assert.NoError(t, ValidateName("version", "1.0.0-rc1"))
	for _, bad := range []string{"", "  ", ".", "..", "a/b", `a\b`, ".hidden"} {
		assert.ErrorIs(t, ValidateName("target type", bad), apperr.ErrValidation, bad)
	}
}
