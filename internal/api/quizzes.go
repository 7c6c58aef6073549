package api

import (
	"net/http"

	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/httputil"
	"github.com/Nizarll/darsi/internal/models"
)

const (
	invalidQuizID = "Invalid quiz id"
	quizNotFound  = "Quiz not found"
)

// Both option lists are always written together.
func (req quizRequest) toQuiz(id int64) models.Quiz {
	return models.Quiz{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Options:      models.OptionList(req.Options),
		ValidOptions: models.OptionList(req.ValidOptions),
	}
}

func (h *Handlers) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateQuiz(r.Context(), req.toQuiz(0))
	if err != nil {
		h.fail(w, r, err, quizNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Quiz created successfully",
		"quizId":  id,
	})
}

func (h *Handlers) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes(r.Context())
	if err != nil {
		h.fail(w, r, err, quizNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *Handlers) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidQuizID)
	if !ok {
		return
	}
	q, err := h.store.GetQuiz(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, quizNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

func (h *Handlers) updateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidQuizID)
	if !ok {
		return
	}
	var req quizRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.store.UpdateQuiz(r.Context(), req.toQuiz(id)); err != nil {
		h.fail(w, r, err, quizNotFound)
		return
	}
	message(w, http.StatusOK, "Quiz updated successfully")
}

func (h *Handlers) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, invalidQuizID)
	if !ok {
		return
	}
	if err := h.store.DeleteQuiz(r.Context(), id); err != nil {
		h.fail(w, r, err, quizNotFound)
		return
	}
	message(w, http.StatusOK, "Quiz deleted successfully")
}

func (h *Handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	courseID, ok := h.pathID(w, r, "User must follow a valid course")
	if !ok {
		return
	}
	if err := h.store.Enroll(r.Context(), claims.UserID, courseID); err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	h.log.Info("course subscribed", "user_id", claims.UserID, "course_id", courseID)
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Subscribed successfully",
		"courseId": courseID,
	})
}

func (h *Handlers) userCourses(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	enrollments, err := h.store.GetUserCourses(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, err, courseNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": enrollments})
}
