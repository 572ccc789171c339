package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/school-students/internal/utils/apperr"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(apperr.KindInvalid))
	assert.Equal(t, http.StatusConflict, StatusCode(apperr.KindConflict))
	assert.Equal(t, http.StatusNotFound, StatusCode(apperr.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(apperr.KindInternal))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"conflict", apperr.Conflict("Email already exists"), http.StatusConflict, "Email already exists"},
		{"not found", apperr.NotFound("Students not found"), http.StatusNotFound, "Students not found"},
		{
			"internal hides cause",
			apperr.Internal("Unable to add student due to unexpected server error").WithCause(errors.New("disk I/O error")),
			http.StatusInternalServerError,
			"Unable to add student due to unexpected server error",
		},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decode(t, rec)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestError_ValidationFields(t *testing.T) {
	type payload struct {
		Name  *string `validate:"required"`
		Email *string `validate:"required"`
	}
	verr := validator.New().Struct(payload{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/", nil),
		apperr.Invalid("Invalid student payload").WithCause(verr))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "field Name is required, field Email is required", decode(t, rec).Error)
}
