package repo

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"
)

// LedgerHeader is the fixed column order of every device ledger.
var LedgerHeader = []string{
	"Sl No",
	"Device added on",
	"VCU Serial Number",
	"IP Address",
	"Last Firmware Version",
	"Last Update On",
	"Update Status",
}

const (
	colSlNo = iota
	colAddedOn
	colSerial
	colIP
	colVersion
	colUpdatedOn
	colStatus
	ledgerCols
)

// LedgerRepository reads and writes the per-target device CSV files.
// Writers within one process are serialized per target. Separate processes
// are not coordinated: the last rename wins.
type LedgerRepository struct {
	layout *Layout
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedgerRepository(layout *Layout) *LedgerRepository {
	return &LedgerRepository{layout: layout, now: time.Now, locks: make(map[string]*sync.Mutex)}
}

// SetClock overrides the timestamp source.
func (r *LedgerRepository) SetClock(now func() time.Time) { r.now = now }

// lock takes the mutex for target and returns its unlock.
func (r *LedgerRepository) lock(target string) func() {
	r.mu.Lock()
	l, ok := r.locks[target]
	if !ok {
		l = &sync.Mutex{}
		r.locks[target] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Init creates an empty ledger holding only the header.
func (r *LedgerRepository) Init(target string) error {
	defer r.lock(target)()
	f, err := os.OpenFile(r.layout.LedgerPath(target), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return apperr.AlreadyExists("init ledger", "ledger for %q already exists", target)
		}
		return apperr.Internal("init ledger", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(LedgerHeader); err != nil {
		_ = f.Close()
		return apperr.Internal("init ledger", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return apperr.Internal("init ledger", err)
	}
	return apperr.Internal("init ledger", f.Close())
}

// List returns every device row in file order.
func (r *LedgerRepository) List(target string) ([]models.DeviceRecord, error) {
	_, rows, err := r.read(target)
	if err != nil {
		return nil, err
	}
	out := make([]models.DeviceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

// ReadAll maps each VCU serial to its IP and firmware version. If a serial
// occurs more than once the last row wins.
func (r *LedgerRepository) ReadAll(target string) (map[string]models.DeviceSummary, error) {
	_, rows, err := r.read(target)
	if err != nil {
		return map[string]models.DeviceSummary{}, err
	}
	out := make(map[string]models.DeviceSummary, len(rows))
	for _, row := range rows {
		rec := toRecord(row)
		if rec.VCUSerial == "" {
			continue
		}
		out[rec.VCUSerial] = models.DeviceSummary{IPAddress: rec.IPAddress, LastFirmwareVersion: rec.LastFirmwareVersion}
	}
	return out, nil
}

// Find returns the last row for serial.
func (r *LedgerRepository) Find(target, serial string) (*models.DeviceRecord, error) {
	_, rows, err := r.read(target)
	if err != nil {
		return nil, err
	}
	var found *models.DeviceRecord
	for _, row := range rows {
		if cell(row, colSerial) == serial {
			rec := toRecord(row)
			found = &rec
		}
	}
	if found == nil {
		return nil, apperr.NotFound("find device", "device %q not found in %q", serial, target)
	}
	return found, nil
}

// NextSequenceNumber returns max(Sl No)+1, skipping non-numeric cells.
// An empty or missing ledger yields 1.
func (r *LedgerRepository) NextSequenceNumber(target string) (int, error) {
	_, rows, err := r.read(target)
	if errors.Is(err, apperr.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return nextSlNo(rows), nil
}

// AddDevice appends a row with status Added. Serials are not checked for
// uniqueness. The new row uses the line ending of the existing header.
func (r *LedgerRepository) AddDevice(target, serial, ip, version string) (*models.DeviceRecord, error) {
	if strings.TrimSpace(serial) == "" {
		return nil, apperr.Validation("add device", "VCU serial number is required")
	}
	defer r.lock(target)()

	path := r.layout.LedgerPath(target)
	lf, err := r.load(target)
	if err != nil {
		return nil, err
	}
	now := models.FormatTime(r.now())
	rec := models.DeviceRecord{
		SlNo:                nextSlNo(lf.rows),
		AddedOn:             now,
		VCUSerial:           serial,
		IPAddress:           ip,
		LastFirmwareVersion: version,
		LastUpdateOn:        now,
		UpdateStatus:        models.StatusAdded,
	}
	rec.SlNoRaw = strconv.Itoa(rec.SlNo)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperr.Internal("add device", err)
	}
	if err := terminateLastLine(f, lf.crlf); err != nil {
		_ = f.Close()
		return nil, apperr.Internal("add device", err)
	}
	w := csv.NewWriter(f)
	w.UseCRLF = lf.crlf
	if lf.header == nil {
		if err := w.Write(LedgerHeader); err != nil {
			_ = f.Close()
			return nil, apperr.Internal("add device", err)
		}
	}
	if err := w.Write(toRow(rec)); err != nil {
		_ = f.Close()
		return nil, apperr.Internal("add device", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, apperr.Internal("add device", err)
	}
	if err := f.Close(); err != nil {
		return nil, apperr.Internal("add device", err)
	}
	return &rec, nil
}

// UpdateDevice sets version, status Updated and the update time on every row
// matching serial. An unknown serial leaves the file untouched.
func (r *LedgerRepository) UpdateDevice(target, serial, version string) (bool, error) {
	now := models.FormatTime(r.now())
	return r.rewrite(target, func(row []string) bool {
		if cell(row, colSerial) != serial {
			return false
		}
		setCell(row, colVersion, version)
		setCell(row, colUpdatedOn, now)
		setCell(row, colStatus, string(models.StatusUpdated))
		return true
	})
}

// SetStatus changes only the status column of rows matching serial.
func (r *LedgerRepository) SetStatus(target, serial string, status models.UpdateStatus) (bool, error) {
	if !status.Valid() {
		return false, apperr.Validation("set status", "unknown update status %q", status)
	}
	return r.RestoreStatus(target, serial, string(status))
}

// RestoreStatus writes status verbatim into the status column of rows
// matching serial. It is meant for putting back a cell read earlier, which
// may hold text outside the known statuses.
func (r *LedgerRepository) RestoreStatus(target, serial, status string) (bool, error) {
	return r.rewrite(target, func(row []string) bool {
		if cell(row, colSerial) != serial {
			return false
		}
		setCell(row, colStatus, status)
		return true
	})
}

// ledgerFile is a parsed ledger that remembers the raw bytes behind each
// record, so a rewrite can copy untouched rows through unchanged.
type ledgerFile struct {
	header    []string
	headerRaw []byte
	rows      [][]string
	// raw[i] holds rows[i] as it appeared on disk, including its line
	// ending and any blank lines before it.
	raw  [][]byte
	tail []byte
	crlf bool
}

func (r *LedgerRepository) read(target string) ([]string, [][]string, error) {
	defer r.lock(target)()
	lf, err := r.load(target)
	if err != nil {
		return nil, nil, err
	}
	return lf.header, lf.rows, nil
}

// load parses the ledger; callers hold the target lock.
func (r *LedgerRepository) load(target string) (*ledgerFile, error) {
	data, err := os.ReadFile(r.layout.LedgerPath(target))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("read ledger", "device ledger for %q not found", target)
	}
	if err != nil {
		return nil, apperr.Internal("read ledger", err)
	}

	lf := &ledgerFile{}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		lf.tail = data
		return lf, nil
	}
	if err != nil {
		return nil, apperr.Internal("read ledger", err)
	}
	off := cr.InputOffset()
	lf.header = header
	lf.headerRaw = data[:off]
	lf.crlf = bytes.HasSuffix(lf.headerRaw, []byte("\r\n"))
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Internal("read ledger", err)
		}
		next := cr.InputOffset()
		lf.rows = append(lf.rows, row)
		lf.raw = append(lf.raw, data[off:next])
		off = next
	}
	lf.tail = data[off:]
	return lf, nil
}

// rewrite passes every row through fn and, when any row matched, writes a
// temp file next to the ledger and renames it over the original. Rows fn
// leaves alone are copied byte for byte.
func (r *LedgerRepository) rewrite(target string, fn func(row []string) bool) (bool, error) {
	defer r.lock(target)()

	lf, err := r.load(target)
	if err != nil {
		return false, err
	}
	matched := make([]bool, len(lf.rows))
	touched := false
	for i, row := range lf.rows {
		if fn(row) {
			matched[i] = true
			touched = true
		}
	}
	if !touched {
		return false, nil
	}

	var buf bytes.Buffer
	buf.Write(lf.headerRaw)
	w := csv.NewWriter(&buf)
	w.UseCRLF = lf.crlf
	for i, row := range lf.rows {
		if !matched[i] {
			buf.Write(lf.raw[i])
			continue
		}
		if err := w.Write(row); err != nil {
			return false, apperr.Internal("rewrite ledger", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return false, apperr.Internal("rewrite ledger", err)
		}
	}
	buf.Write(lf.tail)

	path := r.layout.LedgerPath(target)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, apperr.Internal("rewrite ledger", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return false, apperr.Internal("rewrite ledger", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, apperr.Internal("rewrite ledger", err)
	}
	if err := tmp.Close(); err != nil {
		return false, apperr.Internal("rewrite ledger", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, apperr.Internal("rewrite ledger", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, apperr.Internal("rewrite ledger", fmt.Errorf("rename: %w", err))
	}
	return true, nil
}

func nextSlNo(rows [][]string) int {
	highest := 0
	for _, row := range rows {
		n, err := strconv.Atoi(strings.TrimSpace(cell(row, colSlNo)))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

// terminateLastLine adds a line ending when a hand-edited file lacks one, so
// an appended row does not merge into the previous record.
func terminateLastLine(f *os.File, crlf bool) error {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	eol := "\n"
	if crlf {
		eol = "\r\n"
	}
	_, err = f.WriteString(eol)
	return err
}

func toRecord(row []string) models.DeviceRecord {
	raw := cell(row, colSlNo)
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return models.DeviceRecord{
		SlNo:                n,
		SlNoRaw:             raw,
		AddedOn:             cell(row, colAddedOn),
		VCUSerial:           cell(row, colSerial),
		IPAddress:           cell(row, colIP),
		LastFirmwareVersion: cell(row, colVersion),
		LastUpdateOn:        cell(row, colUpdatedOn),
		UpdateStatus:        models.UpdateStatus(cell(row, colStatus)),
	}
}

func toRow(rec models.DeviceRecord) []string {
	row := make([]string, ledgerCols)
	row[colSlNo] = rec.SlNoRaw
	row[colAddedOn] = rec.AddedOn
	row[colSerial] = rec.VCUSerial
	row[colIP] = rec.IPAddress
	row[colVersion] = rec.LastFirmwareVersion
	row[colUpdatedOn] = rec.LastUpdateOn
	row[colStatus] = string(rec.UpdateStatus)
	return row
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// setCell writes row[i] when the column exists; short rows are left alone
// so their shape survives the rewrite.
func setCell(row []string, i int, v string) {
	if i < len(row) {
		row[i] = v
	}
}
