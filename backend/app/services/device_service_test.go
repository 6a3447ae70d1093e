package services

import (
	"testing"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceServiceAddAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.withTarget(t, "ECU-X", "1.0.0")

	n, err := f.devices.NextSequenceNumber("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.devices.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SlNo)
	assert.Equal(t, models.StatusAdded, rec.UpdateStatus)

	all, err := f.devices.ReadAll("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, map[string]models.DeviceSummary{
		"SN001": {IPAddress: "10.0.0.5", LastFirmwareVersion: "1.0.0"},
	}, all)

	matched, err := f.devices.UpdateDevice("ECU-X", "SN001", "2.0.0")
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := f.devices.Find("ECU-X", "SN001")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.LastFirmwareVersion)
	assert.Equal(t, models.StatusUpdated, got.UpdateStatus)

	matched, err = f.devices.UpdateDevice("ECU-X", "SN999", "2.0.0")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestDeviceServiceUnknownTarget(t *testing.T) {
	f := newFixture(t)
	_, err := f.devices.AddDevice("ECU-Q", "SN001", "", "1.0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := f.devices.ReadAll("ECU-Q")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	_, err = f.devices.UpdateDevice("ECU-Q", "SN001", "1.0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.devices.List("a/b")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
