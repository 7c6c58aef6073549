package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Nizarll/darsi/internal/config"
	"github.com/Nizarll/darsi/internal/logger"
	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store/sqlstore"
)

type sampleCourse struct {
	course   models.Course
	chapters []string
	lessons  []string
}

var sampleCourses = []sampleCourse{
	{
		course:   models.Course{Title: "Introduction to Go", Description: "Syntax, types and the standard toolchain"},
		chapters: []string{"Getting started", "Types and values", "Functions"},
		lessons:  []string{"Installing Go", "Hello, world", "Variables", "Control flow"},
	},
	{
		course:   models.Course{Title: "Relational databases", Description: "Modelling data with SQL"},
		chapters: []string{"Tables and keys", "Joins", "Transactions"},
		lessons:  []string{"Primary keys", "Foreign keys", "Inner joins", "Isolation levels"},
	},
	{
		course:   models.Course{Title: "HTTP fundamentals", Description: "Requests, responses and status codes"},
		chapters: []string{"Methods", "Headers", "Cookies"},
		lessons:  []string{"GET and POST", "Content negotiation", "Session cookies"},
	},
}

var sampleQuizzes = []models.Quiz{
	{
		Title:        "Which keyword starts a goroutine?",
		Options:      models.OptionList{"go", "async", "spawn", "thread"},
		ValidOptions: models.OptionList{"go"},
	},
	{
		Title:        "Which status codes mean the client erred?",
		Options:      models.OptionList{"200", "404", "409", "500"},
		ValidOptions: models.OptionList{"404", "409"},
	},
}

// Seeds sample courses, chapters, lessons and quizzes into the configured
// database. Accepts the same flags and DARSI_* variables as the server.
func main() {
	log := logger.Nop()
	if l, err := logger.New("development"); err == nil {
		log = l
	}
	defer log.Sync()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	store, err := sqlstore.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer store.Close()

	ctx := context.Background()
	var courses, chapters, lessons int

	for _, sc := range sampleCourses {
		courseID, err := store.CreateCourse(ctx, sc.course)
		if err != nil {
			log.Error("failed to insert course", "title", sc.course.Title, "error", err)
			continue
		}
		courses++

		for _, title := range sc.chapters {
			if _, err := store.CreateChapter(ctx, models.Chapter{CourseID: courseID, Title: title}); err != nil {
				log.Error("failed to insert chapter", "title", title, "error", err)
				continue
			}
			chapters++
		}
		for i, title := range sc.lessons {
			if _, err := store.CreateLesson(ctx, models.Lesson{CourseID: courseID, Title: title, OrderIndex: i}); err != nil {
				log.Error("failed to insert lesson", "title", title, "error", err)
				continue
			}
			lessons++
		}
	}

	quizzes := 0
	for _, q := range sampleQuizzes {
		if _, err := store.CreateQuiz(ctx, q); err != nil {
			log.Error("failed to insert quiz", "title", q.Title, "error", err)
			continue
		}
		quizzes++
	}

	fmt.Printf("Inserted %d courses, %d chapters, %d lessons and %d quizzes\n", courses, chapters, lessons, quizzes)
}
