package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// StudentSortColumns maps accepted sort keys onto ORDER BY clauses.
var StudentSortColumns = map[string]string{
	"newest": "created_at DESC",
	"oldest": "created_at ASC",
	"name":   "name ASC",
	"class":  "class ASC",
}

// AdminStudentFilter defines filters for listing students from the admin panel.
type AdminStudentFilter struct {
	Search         string
	Class          string
	Status         string
	Sort           string
	Page           int
	PageSize       int
	IncludeDeleted bool
}

// AdminStudentRepository exposes persistence helpers for admin student operations.
type AdminStudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter AdminStudentFilter) ([]models.Student, int64, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error)
	SoftDelete(ctx context.Context, id uint) error
}

type adminStudentRepository struct {
	db *gorm.DB
}

// NewAdminStudentRepository constructs the admin student repository.
func NewAdminStudentRepository(db *gorm.DB) AdminStudentRepository {
	return &adminStudentRepository{db: db}
}

func (r *adminStudentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *adminStudentRepository) List(ctx context.Context, filter AdminStudentFilter) ([]models.Student, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	if filter.Class != "" {
		query = query.Where("class = ?", filter.Class)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort, ok := StudentSortColumns[filter.Sort]
	if !ok {
		sort = StudentSortColumns["newest"]
	}
	query = paginate(query.Order(sort).Order("id DESC"), filter.Page, filter.PageSize)

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *adminStudentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *adminStudentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error) {
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return models.Student{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

// SoftDelete archives the record and stamps deleted_at in one transaction.
func (r *adminStudentRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Student{}).
			Where("id = ?", id).
			Update("status", models.StudentStatusArchived)
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Delete(&models.Student{}, id).Error
	})
}
