package models

import "time"

// TimeLayout is the ledger timestamp format, always local time.
const TimeLayout = "2006-01-02 15:04:05"

type UpdateStatus string

const (
	StatusAdded    UpdateStatus = "Added"
	StatusPending  UpdateStatus = "Pending"
	StatusUpdated  UpdateStatus = "Updated"
	StatusUpToDate UpdateStatus = "Up-to-date"
)

func (s UpdateStatus) Valid() bool {
	switch s {
	case StatusAdded, StatusPending, StatusUpdated, StatusUpToDate:
		return true
	}
	return false
}

// DeviceRecord is one ledger row. SlNo is 0 when the cell is not numeric;
// the raw cell text is kept in SlNoRaw.
type DeviceRecord struct {
	SlNo                int          `json:"sl_no"`
	SlNoRaw             string       `json:"-"`
	AddedOn             string       `json:"added_on"`
	VCUSerial           string       `json:"vcu_serial"`
	IPAddress           string       `json:"ip_address"`
	LastFirmwareVersion string       `json:"last_firmware_version"`
	LastUpdateOn        string       `json:"last_update_on"`
	UpdateStatus        UpdateStatus `json:"update_status"`
}

// DeviceSummary is the per-serial view returned by a ledger ReadAll.
type DeviceSummary struct {
	IPAddress           string `json:"ip_address"`
	LastFirmwareVersion string `json:"last_firmware_version"`
}

func FormatTime(t time.Time) string { return t.Local().Format(TimeLayout) }

func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}
