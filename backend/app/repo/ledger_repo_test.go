package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, target string) (*LedgerRepository, *Layout) {
	t.Helper()
	layout := NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.TargetDir(target), 0o755))
	l := NewLedgerRepository(layout)
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	l.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	require.NoError(t, l.Init(target))
	return l, layout
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestLedgerInit(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")

	lines := readLines(t, layout.LedgerPath("ECU-X"))
	assert.Equal(t, []string{strings.Join(LedgerHeader, ",")}, lines)
	assert.Equal(t, filepath.Join(layout.Root, "ECU-X", "ECU-X_device_details.csv"), layout.LedgerPath("ECU-X"))

	err := l.Init("ECU-X")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestLedgerAddAndReadAllRoundTrip(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")

	rec, err := l.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SlNo)
	assert.Equal(t, models.StatusAdded, rec.UpdateStatus)
	assert.Equal(t, rec.AddedOn, rec.LastUpdateOn)
	assert.Equal(t, "2024-03-01 10:00:01", rec.AddedOn)

	all, err := l.ReadAll("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceSummary{IPAddress: "10.0.0.5", LastFirmwareVersion: "1.0.0"}, all["SN001"])
}

func TestLedgerMissingFile(t *testing.T) {
	l := NewLedgerRepository(NewLayout(t.TempDir()))

	all, err := l.ReadAll("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	n, err := l.NextSequenceNumber("nope")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = l.AddDevice("nope", "SN1", "", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = l.UpdateDevice("nope", "SN1", "2.0.0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLedgerNextSequenceNumber(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")

	n, err := l.NextSequenceNumber("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for i := 0; i < 3; i++ {
		_, err := l.AddDevice("ECU-X", "SN"+string(rune('A'+i)), "10.0.0.1", "1.0.0")
		require.NoError(t, err)
	}
	n, err = l.NextSequenceNumber("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// a hand-edited row with a non-numeric Sl No is skipped
	f, err := os.OpenFile(layout.LedgerPath("ECU-X"), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("abc,2024-01-01 00:00:00,SNX,10.0.0.9,0.9.0,2024-01-01 00:00:00,Added")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	n, err = l.NextSequenceNumber("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rec, err := l.AddDevice("ECU-X", "SND", "10.0.0.4", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.SlNo)

	n, err = l.NextSequenceNumber("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	list, err := l.List("ECU-X")
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "abc", list[3].SlNoRaw)
	assert.Equal(t, 0, list[3].SlNo)
	assert.Equal(t, "SND", list[4].VCUSerial)
}

func TestLedgerAllowsDuplicateSerials(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")

	_, err := l.AddDevice("ECU-X", "SN001", "10.0.0.1", "1.0.0")
	require.NoError(t, err)
	_, err = l.AddDevice("ECU-X", "SN001", "10.0.0.2", "1.1.0")
	require.NoError(t, err)

	list, err := l.List("ECU-X")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := l.ReadAll("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", all["SN001"].IPAddress)
}

func TestLedgerAddDeviceRequiresSerial(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")
	_, err := l.AddDevice("ECU-X", "  ", "10.0.0.1", "1.0.0")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedgerUpdateDeviceTouchesOnlyMatchedRow(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")
	for _, sn := range []string{"SN001", "SN002", "SN003"} {
		_, err := l.AddDevice("ECU-X", sn, "10.0.0.5", "1.0.0")
		require.NoError(t, err)
	}
	before := readLines(t, layout.LedgerPath("ECU-X"))

	matched, err := l.UpdateDevice("ECU-X", "SN002", "2.0.0")
	require.NoError(t, err)
	assert.True(t, matched)

	after := readLines(t, layout.LedgerPath("ECU-X"))
	require.Len(t, after, len(before))
	for i := range before {
		if i == 2 {
			continue
		}
		assert.Equal(t, before[i], after[i], "line %d", i)
	}

	rec, err := l.Find("ECU-X", "SN002")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.SlNo)
	assert.Equal(t, "10.0.0.5", rec.IPAddress)
	assert.Equal(t, "2.0.0", rec.LastFirmwareVersion)
	assert.Equal(t, models.StatusUpdated, rec.UpdateStatus)
	assert.Equal(t, "2024-03-01 10:00:02", rec.AddedOn)
	assert.Equal(t, "2024-03-01 10:00:04", rec.LastUpdateOn)

	// no stray temp files next to the ledger
	entries, err := os.ReadDir(layout.TargetDir("ECU-X"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerUpdateUnknownSerialIsNoop(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")
	_, err := l.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)
	before := readLines(t, layout.LedgerPath("ECU-X"))

	matched, err := l.UpdateDevice("ECU-X", "SN999", "2.0.0")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, before, readLines(t, layout.LedgerPath("ECU-X")))
}

func TestLedgerScenarioUpdate(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")
	_, err := l.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)
	_, err = l.UpdateDevice("ECU-X", "SN001", "2.0.0")
	require.NoError(t, err)

	all, err := l.ReadAll("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", all["SN001"].LastFirmwareVersion)
}

func TestLedgerSetStatus(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")
	_, err := l.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)

	matched, err := l.SetStatus("ECU-X", "SN001", models.StatusPending)
	require.NoError(t, err)
	assert.True(t, matched)

	rec, err := l.Find("ECU-X", "SN001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.UpdateStatus)
	assert.Equal(t, "1.0.0", rec.LastFirmwareVersion)

	_, err = l.SetStatus("ECU-X", "SN001", "Exploded")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedgerAppendAfterUnterminatedLine(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")
	f, err := os.OpenFile(layout.LedgerPath("ECU-X"), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("7,2024-01-01 00:00:00,SN007,10.0.0.7,1.0.0,2024-01-01 00:00:00,Added")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec, err := l.AddDevice("ECU-X", "SN008", "10.0.0.8", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.SlNo)

	list, err := l.List("ECU-X")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SN007", list[0].VCUSerial)
	assert.Equal(t, "SN008", list[1].VCUSerial)
}

func TestLedgerRewriteKeepsForeignRowsByteIdentical(t *testing.T) {
	l, layout := newLedger(t, "ECU-X")
	path := layout.LedgerPath("ECU-X")
	header := strings.Join(LedgerHeader, ",") + "\r\n"
	row1 := "1,2024-01-01 00:00:00,SN001, 10.0.0.5,1.0.0,2024-01-01 00:00:00,Added\r\n"
	row2 := "2,2024-01-01 00:00:00,SN002,10.0.0.6,1.0.0,2024-01-01 00:00:00,Added\r\n"
	original := header + row1 + row2
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	matched, err := l.UpdateDevice("ECU-X", "SN999", "2.0.0")
	require.NoError(t, err)
	assert.False(t, matched)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(b))

	matched, err = l.UpdateDevice("ECU-X", "SN002", "2.0.0")
	require.NoError(t, err)
	assert.True(t, matched)
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header+row1+"2,2024-01-01 00:00:00,SN002,10.0.0.6,2.0.0,2024-03-01 10:00:02,Updated\r\n", string(b))

	_, err = l.AddDevice("ECU-X", "SN003", "10.0.0.7", "1.0.0")
	require.NoError(t, err)
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), header+row1))
	assert.True(t, strings.HasSuffix(string(b), "3,2024-03-01 10:00:03,SN003,10.0.0.7,1.0.0,2024-03-01 10:00:03,Added\r\n"))
}

func TestLedgerRestoreStatusKeepsRawCell(t *testing.T) {
	l, _ := newLedger(t, "ECU-X")
	_, err := l.AddDevice("ECU-X", "SN001", "10.0.0.5", "1.0.0")
	require.NoError(t, err)

	_, err = l.SetStatus("ECU-X", "SN001", models.StatusPending)
	require.NoError(t, err)
	matched, err := l.RestoreStatus("ECU-X", "SN001", "manual")
	require.NoError(t, err)
	assert.True(t, matched)

	rec, err := l.Find("ECU-X", "SN001")
	require.NoError(t, err)
	assert.Equal(t, models.UpdateStatus("manual"), rec.UpdateStatus)
}

func TestLedgerConcurrentAddsSurviveUpdates(t *testing.T) {
	layout := NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.TargetDir("ECU-X"), 0o755))
	l := NewLedgerRepository(layout)
	require.NoError(t, l.Init("ECU-X"))
	_, err := l.AddDevice("ECU-X", "SN000", "10.0.0.1", "1.0.0")
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 1; i <= n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := l.AddDevice("ECU-X", fmt.Sprintf("SN%03d", i), "10.0.0.2", "1.0.0")
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			_, err := l.UpdateDevice("ECU-X", "SN000", "2.0.0")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := l.List("ECU-X")
	require.NoError(t, err)
	require.Len(t, list, n+1)
	seen := make(map[int]bool, len(list))
	for _, rec := range list {
		assert.False(t, seen[rec.SlNo], "duplicate Sl No %d", rec.SlNo)
		seen[rec.SlNo] = true
	}

	all, err := l.ReadAll("ECU-X")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", all["SN000"].LastFirmwareVersion)
}
