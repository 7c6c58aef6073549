package api

import (
	"net/http"

	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/httputil"
	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

const (
	invalidCourseID  = "Invalid course id"
	invalidChapterID = "Invalid chapter id"
	invalidLessonID  = "Invalid lesson id"

	courseNotFound  = "Course not found"
	chapterNotFound = "Chapter not found"
	lessonNotFound  = "Lesson not found"
)

func message(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSON(w, status, map[string]string{"message": msg})
}

func (h *Handlers) createCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateCourse(r.Context(), models.Course{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Course created successfully",
		"courseId": id,
	})
}

func (h *Handlers) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.ListCourses(r.Context())
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

type courseDetailResponse struct {
	*models.CourseDetail
	// Set only for authenticated callers.
	Subscribed *bool `json:"subscribed,omitempty"`
}

func (h *Handlers) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidCourseID)
	if !ok {
		return
	}
	detail, err := h.store.GetCourseDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}

	resp := courseDetailResponse{CourseDetail: detail}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		enrollments, err := h.store.GetUserCourses(r.Context(), claims.UserID)
		if err != nil {
			h.fail(w, r, err, courseNotFound)
			return
		}
		subscribed := false
		for _, e := range enrollments {
			if e.CourseID == id {
				subscribed = true
				break
			}
		}
		resp.Subscribed = &subscribed
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidCourseID)
	if !ok {
		return
	}
	var req courseRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.store.UpdateCourse(r.Context(), models.Course{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	message(w, http.StatusOK, "Course updated successfully")
}

func (h *Handlers) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidCourseID)
	if !ok {
		return
	}
	if err := h.store.DeleteCourse(r.Context(), id); err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	message(w, http.StatusOK, "Course deleted successfully")
}

func (h *Handlers) createChapter(w http.ResponseWriter, r *http.Request) {
	var req chapterRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateChapter(r.Context(), models.Chapter{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Chapter created successfully",
		"chapterId": id,
	})
}

func (h *Handlers) listChapters(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidCourseID)
	if !ok {
		return
	}
	chapters, err := h.store.GetChaptersByCourse(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"chapters": chapters})
}

func (h *Handlers) getChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidChapterID)
	if !ok {
		return
	}
	ch, err := h.store.GetChapter(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, chapterNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ch)
}

func (h *Handlers) updateChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidChapterID)
	if !ok {
		return
	}
	var req chapterPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.store.UpdateChapter(r.Context(), id, store.ChapterPatch{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		h.fail(w, r, err, chapterNotFound)
		return
	}
	message(w, http.StatusOK, "Chapter updated successfully")
}

func (h *Handlers) deleteChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidChapterID)
	if !ok {
		return
	}
	if err := h.store.DeleteChapter(r.Context(), id); err != nil {
		h.fail(w, r, err, chapterNotFound)
		return
	}
	message(w, http.StatusOK, "Chapter deleted successfully")
}

func (h *Handlers) createLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateLesson(r.Context(), models.Lesson{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		VideoURL:    req.VideoURL,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Lesson created successfully",
		"lessonId": id,
	})
}

func (h *Handlers) listLessons(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidCourseID)
	if !ok {
		return
	}
	lessons, err := h.store.GetLessonsByCourse(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"lessons": lessons})
}

func (h *Handlers) getLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidLessonID)
	if !ok {
		return
	}
	l, err := h.store.GetLesson(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, lessonNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

func (h *Handlers) updateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidLessonID)
	if !ok {
		return
	}
	var req lessonPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.store.UpdateLesson(r.Context(), id, store.LessonPatch{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		VideoURL:    req.VideoURL,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		h.fail(w, r, err, lessonNotFound)
		return
	}
	message(w, http.StatusOK, "Lesson updated successfully")
}

func (h *Handlers) deleteLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidLessonID)
	if !ok {
		return
	}
	if err := h.store.DeleteLesson(r.Context(), id); err != nil {
		h.fail(w, r, err, lessonNotFound)
		return
	}
	message(w, http.StatusOK, "Lesson deleted successfully")
}
