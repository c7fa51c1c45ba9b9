package model

import "time"

// Student represents a student user.
type Student struct {
	ID           int       `json:"id"`
	RollNumber   string    `json:"roll_number"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	Semester     int       `json:"semester"`
	Batch        string    `json:"batch"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentInfo is the public view of a student returned by the portal.
type StudentInfo struct {
	ID         int    `json:"id"`
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Semester   int    `json:"semester"`
	Batch      string `json:"batch"`
}

// Info strips credentials and timestamps.
func (s *Student) Info() StudentInfo {
	return StudentInfo{
		ID:         s.ID,
		RollNumber: s.RollNumber,
		Name:       s.Name,
		Email:      s.Email,
		Department: s.Department,
		Semester:   s.Semester,
		Batch:      s.Batch,
	}
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	RollNumber string `json:"roll_number" binding:"required,min=4,max=20"`
	Password   string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token       string      `json:"token"`
	Student     StudentInfo `json:"student"`
	Preferences Preferences `json:"preferences"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	RollNumber string `json:"roll_number" binding:"required,min=4,max=20"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Department string `json:"department" binding:"required,max=100"`
	Semester   int    `json:"semester" binding:"required,min=1,max=12"`
	Batch      string `json:"batch" binding:"required,max=20"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
}
