package dto

import "github.com/noah-isme/gema-edu-api/internal/models"

// LessonResponse serializes a lesson.
type LessonResponse struct {
	ID       uint   `json:"id"`
	CourseID uint   `json:"course_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ReorderLessonsRequest lists every lesson id of the course in its new order.
type ReorderLessonsRequest struct {
	LessonIDs []uint `json:"lesson_ids" validate:"required,min=1,dive,required"`
}

// NewLessonResponses converts lesson models into DTOs.
func NewLessonResponses(lessons []models.Lesson) []LessonResponse {
	out := make([]LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		out = append(out, LessonResponse{
			ID:       lesson.ID,
			CourseID: lesson.CourseID,
			Title:    lesson.Title,
			Position: lesson.Position,
		})
	}
	return out
}
