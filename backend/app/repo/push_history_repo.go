package repo

import (
	"fota-manager/backend/app/models"

	"gorm.io/gorm"
)

type PushHistoryRepository struct {
	db *gorm.DB
}

func NewPushHistoryRepository(db *gorm.DB) *PushHistoryRepository {
	return &PushHistoryRepository{db: db}
}

func (r *PushHistoryRepository) Migrate() error {
	return r.db.AutoMigrate(&models.PushRecord{})
}

func (r *PushHistoryRepository) Create(rec *models.PushRecord) error {
	return r.db.Create(rec).Error
}

// ListByDevice trả về lịch sử push của một device, mới nhất trước.
func (r *PushHistoryRepository) ListByDevice(target, serial string, limit int) ([]models.PushRecord, error) {
	var out []models.PushRecord
	q := r.db.Where("target_type = ? AND vcu_serial = ?", target, serial).Order("finished_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PushHistoryRepository) ListRecent(limit int) ([]models.PushRecord, error) {
	var out []models.PushRecord
	q := r.db.Order("finished_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
