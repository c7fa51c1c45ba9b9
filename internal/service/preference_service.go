package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/model"
)

// PreferenceService loads and saves student UI preferences.
type PreferenceService struct {
	store PreferenceStore
	log   zerolog.Logger
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(store PreferenceStore, log zerolog.Logger) *PreferenceService {
	return &PreferenceService{store: store, log: logger.Component(log, "preference_service")}
}

// Get returns saved preferences, or the defaults for a new student.
func (s *PreferenceService) Get(ctx context.Context, studentID int) (model.Preferences, error) {
	prefs, _, err := s.store.Get(ctx, studentID)
	if err != nil {
		return model.DefaultPreferences(), fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// Update applies a partial patch and saves only when something changed.
func (s *PreferenceService) Update(ctx context.Context, studentID int, req *model.UpdatePreferencesRequest) (model.Preferences, bool, error) {
	prefs, err := s.Get(ctx, studentID)
	if err != nil {
		return prefs, false, err
	}
	if !req.Apply(&prefs) {
		return prefs, false, nil
	}
	if err := s.store.Save(ctx, studentID, prefs); err != nil {
		return prefs, false, fmt.Errorf("save preferences: %w", err)
	}

	s.log.Debug().
		Int("student_id", studentID).
		Str("theme", string(prefs.Theme)).
		Str("accent_color", string(prefs.AccentColor)).
		Msg("Preferences saved")
	return prefs, true, nil
}
