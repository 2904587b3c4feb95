package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-search/internal/models"
)

var ErrCandidateNotFound = errors.New("candidate not found")

type CandidateRepository interface {
	Create(rec *models.CandidateRecord) error
	FindByID(id uuid.UUID) (*models.CandidateRecord, error)
	FindByIDs(ids []uuid.UUID) ([]models.CandidateRecord, error)
	UpdateStatus(id uuid.UUID, status models.CandidateStatus) error
	UpdateIndexed(id uuid.UUID, summary *string) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.CandidateRecord, error)
	ListIndexed(limit, offset int) ([]models.CandidateRecord, error)
	Count() (int64, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) Create(rec *models.CandidateRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

func (r *candidateRepository) FindByID(id uuid.UUID) (*models.CandidateRecord, error) {
	var rec models.CandidateRecord
	if err := r.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &rec, nil
}

// FindByIDs returns the records that exist, in no particular order.
func (r *candidateRepository) FindByIDs(ids []uuid.UUID) ([]models.CandidateRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []models.CandidateRecord
	if err := r.db.Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	return recs, nil
}

func (r *candidateRepository) UpdateStatus(id uuid.UUID, status models.CandidateStatus) error {
	return r.update(id, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}, "status")
}

func (r *candidateRepository) UpdateIndexed(id uuid.UUID, summary *string) error {
	updates := map[string]interface{}{
		"status":        models.StatusIndexed,
		"error_message": nil,
		"updated_at":    time.Now(),
	}
	if summary != nil {
		updates["summary"] = *summary
	}
	return r.update(id, updates, "indexed candidate")
}

func (r *candidateRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.update(id, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	}, "error")
}

func (r *candidateRepository) update(id uuid.UUID, updates map[string]interface{}, what string) error {
	result := r.db.Model(&models.CandidateRecord{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", what, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrCandidateNotFound
	}

	return nil
}

func (r *candidateRepository) FindPendingJobs(limit int) ([]models.CandidateRecord, error) {
	var recs []models.CandidateRecord
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return recs, nil
}

// ListIndexed pages through indexed candidates, newest first.
func (r *candidateRepository) ListIndexed(limit, offset int) ([]models.CandidateRecord, error) {
	var recs []models.CandidateRecord
	err := r.db.
		Where("status = ?", models.StatusIndexed).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	return recs, nil
}

// Count returns the number of indexed candidates.
func (r *candidateRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.CandidateRecord{}).Where("status = ?", models.StatusIndexed).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return n, nil
}
