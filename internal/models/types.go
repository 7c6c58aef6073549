package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role is the coarse permission level carried by a user and its tokens.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// CourseDetail is a course together with its chapters and ordered lessons.
type CourseDetail struct {
	Course
	Chapters []Chapter `json:"chapters"`
	Lessons  []Lesson  `json:"lessons"`
}

type Chapter struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

type Lesson struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	VideoURL    string `json:"video_url"`
	OrderIndex  int    `json:"order_index"`
}

type Quiz struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Content      string     `json:"content"`
	Options      OptionList `json:"options"`
	ValidOptions OptionList `json:"valid_options"`
}

// Enrollment records that a user follows a course.
type Enrollment struct {
	UserID   int64 `json:"user_id"`
	CourseID int64 `json:"course_id"`
}

// OptionList is an ordered list of quiz answers stored as a JSON array in a
// text column.
type OptionList []string

// Value implements driver.Valuer.
func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		o = OptionList{}
	}
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (o *OptionList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = OptionList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("option list: unsupported column type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("option list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*o = out
	return nil
}
