package services

import (
	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/global"
)

type DeviceService struct {
	ledgers  *repo.LedgerRepository
	firmware *repo.FirmwareRepository
}

func NewDeviceService(ledgers *repo.LedgerRepository, firmware *repo.FirmwareRepository) *DeviceService {
	return &DeviceService{ledgers: ledgers, firmware: firmware}
}

// ReadAll maps every VCU serial of target to its IP and firmware version.
// On error the map is empty, never nil.
func (s *DeviceService) ReadAll(target string) (map[string]models.DeviceSummary, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return map[string]models.DeviceSummary{}, err
	}
	return s.ledgers.ReadAll(target)
}

func (s *DeviceService) List(target string) ([]models.DeviceRecord, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return nil, err
	}
	return s.ledgers.List(target)
}

func (s *DeviceService) Find(target, serial string) (*models.DeviceRecord, error) {
	return s.ledgers.Find(target, serial)
}

func (s *DeviceService) NextSequenceNumber(target string) (int, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return 0, err
	}
	return s.ledgers.NextSequenceNumber(target)
}

// AddDevice registers a device under an existing target type.
func (s *DeviceService) AddDevice(target, serial, ip, version string) (*models.DeviceRecord, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return nil, err
	}
	ok, err := s.firmware.TargetExists(target)
	if err != nil {
		return nil, apperr.Internal("add device", err)
	}
	if !ok {
		return nil, apperr.NotFound("add device", "target type %q not found", target)
	}
	rec, err := s.ledgers.AddDevice(target, serial, ip, version)
	if err != nil {
		return nil, err
	}
	global.Logger.Info().Str("target", target).Str("serial", serial).Int("sl_no", rec.SlNo).Msg("device added")
	return rec, nil
}

// UpdateDevice records a new firmware version for serial. It reports whether
// any row matched.
func (s *DeviceService) UpdateDevice(target, serial, version string) (bool, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return false, err
	}
	matched, err := s.ledgers.UpdateDevice(target, serial, version)
	if err != nil {
		return false, err
	}
	if !matched {
		global.Logger.Debug().Str("target", target).Str("serial", serial).Msg("update device: no matching row")
	}
	return matched, nil
}

func (s *DeviceService) SetStatus(target, serial string, status models.UpdateStatus) (bool, error) {
	return s.ledgers.SetStatus(target, serial, status)
}

// RestoreStatus puts back a status cell read earlier, verbatim.
func (s *DeviceService) RestoreStatus(target, serial string, status models.UpdateStatus) (bool, error) {
	return s.ledgers.RestoreStatus(target, serial, string(status))
}
