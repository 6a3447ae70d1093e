package models

import "time"

// FirmwareBinary describes the single binary stored for a (target, version).
type FirmwareBinary struct {
	TargetType string    `json:"target_type"`
	Version    string    `json:"version"`
	FileName   string    `json:"file_name"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
}
