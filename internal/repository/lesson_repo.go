package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// ErrLessonSetMismatch reports a reorder payload that is not a permutation of the course lessons.
var ErrLessonSetMismatch = errors.New("lesson ids do not match the course lessons")

// LessonRepository manages course lessons.
type LessonRepository interface {
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error)
	Reorder(ctx context.Context, courseID uint, orderedIDs []uint) ([]models.Lesson, error)
}

type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository constructs the lesson repository.
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func (r *lessonRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *lessonRepository) ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	return listLessons(r.db.WithContext(ctx), courseID)
}

// Reorder assigns positions 1..n following orderedIDs inside one transaction. Any failure
// rolls every row back.
func (r *lessonRepository) Reorder(ctx context.Context, courseID uint, orderedIDs []uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := listLessons(tx, courseID)
		if err != nil {
			return err
		}
		if len(current) != len(orderedIDs) {
			return ErrLessonSetMismatch
		}
		known := make(map[uint]struct{}, len(current))
		for _, lesson := range current {
			known[lesson.ID] = struct{}{}
		}

		for idx, id := range orderedIDs {
			if _, ok := known[id]; !ok {
				return ErrLessonSetMismatch
			}
			delete(known, id)

			update := tx.Model(&models.Lesson{}).
				Where("id = ? AND course_id = ?", id, courseID).
				Update("position", idx+1)
			if update.Error != nil {
				return update.Error
			}
		}

		lessons, err = listLessons(tx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

func listLessons(db *gorm.DB, courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := db.Where("course_id = ?", courseID).Order("position ASC").Order("id ASC").Find(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}
