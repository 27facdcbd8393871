package validators

import (
	"testing"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_OK(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&models.CreateCommentRequest{Comment: "hello", Parent: "65a1f0c2e4b0a1b2c3d4e5f6"})

	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	v := NewValidator()

	var req models.SignupRequest
	req.PersonalInfo.Fullname = "Jo"
	req.PersonalInfo.Email = "not-an-email"
	req.PersonalInfo.Password = "secret1"
	err := v.Validate(&req)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "personal_info.fullname must be at least 3 characters")
	assert.Contains(t, err.Error(), "personal_info.email must be a valid email address")
}

func TestValidate_ParentMustBeObjectID(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&models.CreateCommentRequest{Comment: "hi", Parent: "123"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent must be exactly 24 characters")
}
