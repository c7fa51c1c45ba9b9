package model

// Theme is the portal colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// AccentColor is one of the accent colour presets.
type AccentColor string

const (
	AccentLavender AccentColor = "lavender"
	AccentBlue     AccentColor = "blue"
)

// Preferences holds a student's UI settings.
type Preferences struct {
	Theme         Theme       `json:"theme"`
	AccentColor   AccentColor `json:"accent_color"`
	SoundEnabled  bool        `json:"sound_enabled"`
	Glassmorphism bool        `json:"glassmorphism"`
}

// DefaultPreferences returns the settings used before a student changes anything.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         ThemeLight,
		AccentColor:   AccentLavender,
		SoundEnabled:  true,
		Glassmorphism: false,
	}
}

// UpdatePreferencesRequest is a partial patch; nil fields are left unchanged.
type UpdatePreferencesRequest struct {
	Theme         *Theme       `json:"theme" binding:"omitempty,theme"`
	AccentColor   *AccentColor `json:"accent_color" binding:"omitempty,accent"`
	SoundEnabled  *bool        `json:"sound_enabled"`
	Glassmorphism *bool        `json:"glassmorphism"`
}

// Apply patches p in place and reports whether anything changed.
func (r *UpdatePreferencesRequest) Apply(p *Preferences) bool {
	changed := false
	if r.Theme != nil && *r.Theme != p.Theme {
		p.Theme = *r.Theme
		changed = true
	}
	if r.AccentColor != nil && *r.AccentColor != p.AccentColor {
		p.AccentColor = *r.AccentColor
		changed = true
	}
	if r.SoundEnabled != nil && *r.SoundEnabled != p.SoundEnabled {
		p.SoundEnabled = *r.SoundEnabled
		changed = true
	}
	if r.Glassmorphism != nil && *r.Glassmorphism != p.Glassmorphism {
		p.Glassmorphism = *r.Glassmorphism
		changed = true
	}
	return changed
}
