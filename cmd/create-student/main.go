package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/database"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
	"github.com/stemsi/examroom/internal/service"
	"github.com/stemsi/examroom/internal/validator"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	studentService := service.NewStudentService(repository.NewStudentRepository(pool), cfg.BcryptCost)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		v, _ := reader.ReadString('\n')
		return strings.TrimSpace(v)
	}

	fmt.Println("=== Create New Student ===")

	req := &model.CreateStudentRequest{
		RollNumber: prompt("Enter Roll Number: "),
		Name:       prompt("Enter Name: "),
		Email:      prompt("Enter Email: "),
		Department: prompt("Enter Department: "),
		Batch:      prompt("Enter Batch (e.g. 2022-2026): "),
	}

	semester, err := strconv.Atoi(prompt("Enter Semester: "))
	if err != nil {
		fmt.Println("Error: Semester must be a number")
		return
	}
	req.Semester = semester

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	req.Password = string(bytePassword)
	fmt.Println() // Newline after password input

	if fields := validator.Validate(req); fields != nil {
		for field, msg := range fields {
			fmt.Printf("Error: %s: %s\n", field, msg)
		}
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	student, err := studentService.Create(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateRollNumber) {
			fmt.Printf("Error: roll number %s is already registered\n", req.RollNumber)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create student")
	}

	fmt.Printf("\nSuccess! Student '%s' (%s) created with ID: %d\n", student.Name, student.RollNumber, student.ID)
}
