package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examroom/internal/catalog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/database"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
	"github.com/stemsi/examroom/internal/service"
)

func main() {
	withResults := flag.Bool("results", true, "Seed completed results for the demo student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding demo catalog ===")

	// ─── Demo Student ──────────────────────────────────────────────────
	student := catalog.DemoStudent
	student.PasswordHash, err = service.HashPassword(catalog.DemoPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	if err := studentRepo.UpsertByRollNumber(ctx, &student); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert demo student")
	}
	fmt.Printf("Student %s (%s) has ID %d\n", student.Name, student.RollNumber, student.ID)

	// ─── Assessments + Questions ───────────────────────────────────────
	seeded, results := 0, 0
	for _, sa := range catalog.Assessments(time.Now()) {
		a := sa.Assessment
		if err := assessmentRepo.Upsert(ctx, &a); err != nil {
			log.Fatal().Err(err).Int64("assessment_id", a.ID).Msg("Failed to upsert assessment")
		}
		if err := questionRepo.ReplaceForAssessment(ctx, a.ID, catalog.QuestionsFor(a)); err != nil {
			log.Fatal().Err(err).Int64("assessment_id", a.ID).Msg("Failed to store questions")
		}
		seeded++

		if !*withResults || sa.Score == nil {
			continue
		}
		res := &model.AssessmentResult{
			AssessmentID: a.ID,
			StudentID:    student.ID,
			AttemptID:    uuid.NewString(),
			Score:        *sa.Score,
			TotalMarks:   a.TotalMarks,
			Answered:     *sa.Score / catalog.DefaultMarks,
			Reason:       exam.ReasonManual,
			SubmittedAt:  a.EndsAt(),
		}
		if err := assessmentRepo.InsertResult(ctx, res); err != nil {
			log.Fatal().Err(err).Int64("assessment_id", a.ID).Msg("Failed to insert result")
		}
		results++
	}

	// Explicit ids bypass the identity sequence; move it past them.
	if _, err := pool.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('assessments', 'id'), (SELECT MAX(id) FROM assessments))`,
	); err != nil {
		log.Warn().Err(err).Msg("Failed to advance assessment id sequence")
	}

	fmt.Printf("\nSeed completed! %d assessments, %d results.\n", seeded, results)
}
