package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubjectRepository implements anagrafica.SubjectRepository using GORM
type GormSubjectRepository struct {
	db *gorm.DB
}

// NewGormSubjectRepository creates a new GormSubjectRepository
func NewGormSubjectRepository(db *gorm.DB) *GormSubjectRepository {
	return &GormSubjectRepository{db: db}
}

// FindByID finds a subject by ID
func (r *GormSubjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*anagrafica.Subject, error) {
	var subject anagrafica.Subject
	if err := r.db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

// FindByCode finds a subject by business code
func (r *GormSubjectRepository) FindByCode(ctx context.Context, code string) (*anagrafica.Subject, error) {
	var subject anagrafica.Subject
	if err := r.db.WithContext(ctx).First(&subject, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

// FindDomestic matches a domestic party on (VAT number, fiscal code)
func (r *GormSubjectRepository) FindDomestic(ctx context.Context, vatNumber, fiscalCode string) (*anagrafica.Subject, error) {
	var subject anagrafica.Subject
	if err := r.db.WithContext(ctx).
		First(&subject, "vat_number = ? AND fiscal_code = ?", vatNumber, fiscalCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

// FindForeign matches a foreign party on (legal name, city) with NULL VAT
func (r *GormSubjectRepository) FindForeign(ctx context.Context, name, city string) (*anagrafica.Subject, error) {
	var subject anagrafica.Subject
	if err := r.db.WithContext(ctx).
		First(&subject, "vat_number IS NULL AND name = ? AND city = ?", name, city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

// FindAll returns every subject ordered by code
func (r *GormSubjectRepository) FindAll(ctx context.Context) ([]anagrafica.Subject, error) {
	var subjects []anagrafica.Subject
	if err := r.db.WithContext(ctx).Order("code").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

// NextCode allocates prefix + zero-padded max+1 within the prefix. The store
// runs on a single write connection, so two callers cannot read the same max;
// the unique index on code backstops it either way.
func (r *GormSubjectRepository) NextCode(ctx context.Context, prefix string) (string, error) {
	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&anagrafica.Subject{}).
		Select("code").
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		Limit(1).
		Scan(&maxCode).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if len(maxCode) > len(prefix) {
		if n, err := strconv.Atoi(maxCode[len(prefix):]); err == nil {
			next = n + 1
		}
	}
	return anagrafica.FormatCode(prefix, next), nil
}

// Create inserts a subject. A code collision surfaces as ErrAlreadyExists so
// the allocator can retry with the next progressive.
func (r *GormSubjectRepository) Create(ctx context.Context, subject *anagrafica.Subject) error {
	if err := r.db.WithContext(ctx).Create(subject).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subject code %s: %w", subject.Code, shared.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// Update persists subject changes
func (r *GormSubjectRepository) Update(ctx context.Context, subject *anagrafica.Subject) error {
	return r.db.WithContext(ctx).Save(subject).Error
}

// Delete removes a subject
func (r *GormSubjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&anagrafica.Subject{}, "id = ?", id).Error
}

// Ensure GormSubjectRepository implements the interface
var _ anagrafica.SubjectRepository = (*GormSubjectRepository)(nil)
