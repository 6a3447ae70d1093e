package services

import (
	"io"

	"fota-manager/backend/app/metrics"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/global"
)

// InventoryService manages target types and their firmware versions.
type InventoryService struct {
	firmware *repo.FirmwareRepository
	ledgers  *repo.LedgerRepository
}

func NewInventoryService(firmware *repo.FirmwareRepository, ledgers *repo.LedgerRepository) *InventoryService {
	return &InventoryService{firmware: firmware, ledgers: ledgers}
}

func (s *InventoryService) ListTargetTypes() ([]string, error) {
	return s.firmware.ListTargetTypes()
}

func (s *InventoryService) ListFirmwareVersions(target string) ([]string, error) {
	if err := repo.ValidateName("target type", target); err != nil {
		return nil, err
	}
	return s.firmware.ListVersions(target)
}

// CreateTargetType registers a new target type with its first firmware
// version and an empty device ledger. A partially created tree is removed
// on failure.
func (s *InventoryService) CreateTargetType(name, version, binaryName string, binary io.Reader) (*models.FirmwareBinary, error) {
	if err := validateUpload(name, version, binaryName); err != nil {
		return nil, err
	}
	if err := s.firmware.CreateTarget(name); err != nil {
		return nil, err
	}
	bin, err := s.firmware.StoreBinary(name, version, binaryName, binary)
	if err == nil {
		err = s.ledgers.Init(name)
	}
	if err != nil {
		if rmErr := s.firmware.RemoveTarget(name); rmErr != nil {
			global.Logger.Error().Err(rmErr).Str("target", name).Msg("rollback target type")
		}
		return nil, err
	}
	metrics.ObserveUpload(name, bin.Size)
	global.Logger.Info().Str("target", name).Str("version", version).Int64("size", bin.Size).Msg("target type created")
	return bin, nil
}

func (s *InventoryService) AddFirmwareVersion(target, version, binaryName string, binary io.Reader) (*models.FirmwareBinary, error) {
	if err := validateUpload(target, version, binaryName); err != nil {
		return nil, err
	}
	bin, err := s.firmware.StoreBinary(target, version, binaryName, binary)
	if err != nil {
		return nil, err
	}
	metrics.ObserveUpload(target, bin.Size)
	global.Logger.Info().Str("target", target).Str("version", version).Int64("size", bin.Size).Msg("firmware version added")
	return bin, nil
}

func (s *InventoryService) BinaryInfo(target, version string) (*models.FirmwareBinary, error) {
	if err := validateUpload(target, version, "x"); err != nil {
		return nil, err
	}
	return s.firmware.Binary(target, version)
}

// VersionExists reports whether target has a version folder named version.
func (s *InventoryService) VersionExists(target, version string) (bool, error) {
	return s.firmware.VersionExists(target, version)
}

func (s *InventoryService) TargetExists(target string) (bool, error) {
	return s.firmware.TargetExists(target)
}

func validateUpload(target, version, binaryName string) error {
	if err := repo.ValidateName("target type", target); err != nil {
		return err
	}
	if err := repo.ValidateName("version", version); err != nil {
		return err
	}
	return repo.ValidateName("binary file name", binaryName)
}
