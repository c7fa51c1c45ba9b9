package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// StudentPreferencesKey returns the hash key holding a student's UI preferences
func (r *CacheKeyStruct) StudentPreferencesKey(studentID int) string {
	return fmt.Sprintf("student:%d:preferences", studentID)
}

// AssessmentPaperKey returns the cache key holding an assessment's question paper
func (r *CacheKeyStruct) AssessmentPaperKey(assessmentID int64) string {
	return fmt.Sprintf("assessment:%d:paper", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
