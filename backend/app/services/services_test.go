package services

import (
	"strings"
	"testing"
	"time"

	"fota-manager/backend/app/repo"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	root      string
	layout    *repo.Layout
	firmware  *repo.FirmwareRepository
	ledgers   *repo.LedgerRepository
	inventory *InventoryService
	devices   *DeviceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := repo.NewLayout(root)
	firmware := repo.NewFirmwareRepository(layout)
	ledgers := repo.NewLedgerRepository(layout)
	return &fixture{
		root:      root,
		layout:    layout,
		firmware:  firmware,
		ledgers:   ledgers,
		inventory: NewInventoryService(firmware, ledgers),
		devices:   NewDeviceService(ledgers, firmware),
	}
}

// withTarget creates target with an initial version.
func (f *fixture) withTarget(t *testing.T, target, version string) {
	t.Helper()
	_, err := f.inventory.CreateTargetType(target, version, "fw.bin", strings.NewReader("v"+version))
	require.NoError(t, err)
}

func (f *fixture) pushService(history PushHistory) *PushService {
	return NewPushService(f.devices, f.inventory, history, 4, time.Millisecond)
}
