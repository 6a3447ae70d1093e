package models

import "time"

// PushRecord lưu lại mỗi lần push firmware đã kết thúc (completed hoặc failed).
type PushRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	JobID       string    `gorm:"size:64;uniqueIndex" json:"job_id"`
	TargetType  string    `gorm:"size:191;index:idx_push_device" json:"target"`
	VCUSerial   string    `gorm:"column:vcu_serial;size:191;index:idx_push_device" json:"vcu_serial"`
	FromVersion string    `gorm:"size:128" json:"from_version"`
	ToVersion   string    `gorm:"size:128" json:"to_version"`
	State       string    `gorm:"size:32;index" json:"state"`
	Error       string    `gorm:"size:512" json:"error,omitempty"`
	RequestedBy string    `gorm:"size:191" json:"requested_by,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
