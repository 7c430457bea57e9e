package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

func TestLessonRepositoryReorder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	course := models.Course{Title: "Go 101", InstructorID: 1, Lessons: []models.Lesson{
		{Title: "Intro", Position: 1},
		{Title: "Types", Position: 2},
		{Title: "Goroutines", Position: 3},
	}}
	require.NoError(t, db.Create(&course).Error)
	ids := []uint{course.Lessons[2].ID, course.Lessons[0].ID, course.Lessons[1].ID}

	lessons, err := repo.Reorder(ctx, course.ID, ids)
	require.NoError(t, err)
	require.Equal(t, []string{"Goroutines", "Intro", "Types"}, titles(lessons))
}

func TestLessonRepositoryReorderRollsBackOnMismatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	course := models.Course{Title: "SQL", InstructorID: 1, Lessons: []models.Lesson{
		{Title: "Select", Position: 1},
		{Title: "Join", Position: 2},
	}}
	require.NoError(t, db.Create(&course).Error)

	// The second id belongs to no lesson of this course, so the first update must not survive.
	_, err := repo.Reorder(ctx, course.ID, []uint{course.Lessons[1].ID, 9999})
	require.ErrorIs(t, err, ErrLessonSetMismatch)

	lessons, err := repo.ListLessons(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Select", "Join"}, titles(lessons))
	require.Equal(t, 2, lessons[1].Position)
}

func titles(lessons []models.Lesson) []string {
	out := make([]string, 0, len(lessons))
	for _, lesson := range lessons {
		out = append(out, lesson.Title)
	}
	return out
}
