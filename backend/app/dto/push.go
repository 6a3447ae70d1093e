package dto

import "fota-manager/backend/app/models"

type PushRequest struct {
	Target    string `json:"target" validate:"required,pathname"`
	VCUSerial string `json:"vcu_serial" validate:"required"`
	Version   string `json:"version" validate:"required,pathname"`
	// Wait blocks the request until the transfer is terminal.
	Wait bool `json:"wait,omitempty"`
}

type PushHistoryResponse struct {
	Records []models.PushRecord `json:"records"`
}
