package dto

import "fota-manager/backend/app/models"

type AddDeviceRequest struct {
	Target          string `json:"target" validate:"required,pathname"`
	VCUSerial       string `json:"vcu_serial" validate:"required"`
	IPAddress       string `json:"ip_address" validate:"omitempty,ip"`
	FirmwareVersion string `json:"firmware_version"`
}

type DeviceListResponse struct {
	Target   string                `json:"target"`
	Devices  []models.DeviceRecord `json:"devices"`
	NextSlNo int                   `json:"next_sl_no"`
}
