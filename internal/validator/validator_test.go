package validator

import (
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidate() *govalidator.Validate {
	v := govalidator.New()
	v.SetTagName("binding")
	register(v)
	return v
}

func TestPreferenceTags(t *testing.T) {
	v := newValidate()

	dark, blue := model.ThemeDark, model.AccentBlue
	assert.NoError(t, v.Struct(model.UpdatePreferencesRequest{Theme: &dark, AccentColor: &blue}))
	assert.NoError(t, v.Struct(model.UpdatePreferencesRequest{}))

	neon, pink := model.Theme("neon"), model.AccentColor("pink")
	err := v.Struct(model.UpdatePreferencesRequest{Theme: &neon, AccentColor: &pink})
	require.Error(t, err)

	fields := TranslateErrors(err)
	assert.Equal(t, "theme must be light or dark", fields["theme"])
	assert.Equal(t, "accent_color must be lavender or blue", fields["accent_color"])
}

func TestLoginRequestMessages(t *testing.T) {
	v := newValidate()
	err := v.Struct(model.StudentLoginRequest{RollNumber: "S1"})
	require.Error(t, err)

	fields := TranslateErrors(err)
	assert.Contains(t, fields, "roll_number")
	assert.Contains(t, fields, "password")
}

func TestValidateOutsideRequest(t *testing.T) {
	Setup()

	req := model.CreateStudentRequest{
		RollNumber: "STU2025009",
		Name:       "Meera Iyer",
		Email:      "meera.iyer@university.edu",
		Department: "Computer Science",
		Semester:   3,
		Batch:      "2023-2027",
		Password:   "secret123",
	}
	assert.Nil(t, Validate(&req))

	req.Name = "M"
	req.Email = "not-an-email"
	req.Semester = 13
	fields := Validate(&req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "semester")
	assert.NotContains(t, fields, "roll_number")
}
