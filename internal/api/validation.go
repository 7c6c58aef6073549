package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Nizarll/darsi/internal/models"
)

type registerRequest struct {
	Username string      `json:"username" validate:"required,min=3"`
	Password string      `json:"password" validate:"required,min=6,bcryptlen,password"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=student teacher"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required"`
}

type courseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

type chapterRequest struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

type chapterPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
}

type lessonRequest struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Content     string `json:"content"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
}

type lessonPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	VideoURL    *string `json:"video_url" validate:"omitempty,url"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,gte=0"`
}

type quizRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	Options      []string `json:"options" validate:"required,min=1"`
	ValidOptions []string `json:"valid_options" validate:"required,min=1"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", validatePassword)
	_ = v.RegisterValidation("bcryptlen", validateBcryptLength)
	v.RegisterStructValidation(validateQuizOptions, quizRequest{})
	return v
}

// bcrypt rejects inputs longer than this many bytes.
const maxPasswordBytes = 72

func validateBcryptLength(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxPasswordBytes
}

// Mixed case plus at least one digit, ASCII only.
func validatePassword(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// valid_options must be drawn from options.
func validateQuizOptions(sl validator.StructLevel) {
	q := sl.Current().Interface().(quizRequest)
	known := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		known[o] = true
	}
	for _, o := range q.ValidOptions {
		if !known[o] {
			sl.ReportError(q.ValidOptions, "valid_options", "ValidOptions", "subset", "")
			return
		}
	}
}

// fieldErrors converts validator output into the response shape. The second
// result is false for errors that are not validation failures.
func fieldErrors(err error) ([]FieldError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out, true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be a positive integer", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "password":
		return "password must contain a lowercase letter, an uppercase letter and a digit"
	case "bcryptlen":
		return fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "subset":
		return "valid_options must be a subset of options"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
