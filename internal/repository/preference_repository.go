package repository

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/model"
)

// PreferenceRepository stores student UI preferences in a Redis hash.
type PreferenceRepository struct {
	rdb *redis.Client
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(rdb *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{rdb: rdb}
}

// Get loads saved preferences. found is false when nothing was ever saved;
// missing or malformed fields keep their defaults.
func (r *PreferenceRepository) Get(ctx context.Context, studentID int) (prefs model.Preferences, found bool, err error) {
	prefs = model.DefaultPreferences()

	fields, err := r.rdb.HGetAll(ctx, config.CacheKey.StudentPreferencesKey(studentID)).Result()
	if err != nil {
		return prefs, false, err
	}
	if len(fields) == 0 {
		return prefs, false, nil
	}

	switch model.Theme(fields["theme"]) {
	case model.ThemeLight, model.ThemeDark:
		prefs.Theme = model.Theme(fields["theme"])
	}
	switch model.AccentColor(fields["accent_color"]) {
	case model.AccentLavender, model.AccentBlue:
		prefs.AccentColor = model.AccentColor(fields["accent_color"])
	}
	if v, err := strconv.ParseBool(fields["sound_enabled"]); err == nil {
		prefs.SoundEnabled = v
	}
	if v, err := strconv.ParseBool(fields["glassmorphism"]); err == nil {
		prefs.Glassmorphism = v
	}
	return prefs, true, nil
}

// Save writes every preference field.
func (r *PreferenceRepository) Save(ctx context.Context, studentID int, prefs model.Preferences) error {
	return r.rdb.HSet(ctx, config.CacheKey.StudentPreferencesKey(studentID), map[string]interface{}{
		"theme":         string(prefs.Theme),
		"accent_color":  string(prefs.AccentColor),
		"sound_enabled": strconv.FormatBool(prefs.SoundEnabled),
		"glassmorphism": strconv.FormatBool(prefs.Glassmorphism),
	}).Err()
}
