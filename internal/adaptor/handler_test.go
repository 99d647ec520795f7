package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rental-marketplace/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	unitID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErrors bool
	}{
		{
			name:       "validation with fields",
			err:        &usecase.ValidationError{Message: "invalid request", Fields: map[string]string{"label": "label is required"}},
			wantStatus: http.StatusBadRequest,
			wantErrors: true,
		},
		{
			name:       "validation without fields",
			err:        &usecase.ValidationError{Message: "window end must be after start"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unit conflict",
			err: &usecase.ConflictError{Message: "requested units are not available", Units: []usecase.UnitConflict{
				{UnitID: unitID, Label: "R-1", Reason: usecase.ConflictAlreadyAssigned},
			}},
			wantStatus: http.StatusConflict,
			wantErrors: true,
		},
		{
			name:       "wrapped not found",
			err:        errors.Join(errors.New("context"), &usecase.NotFoundError{Resource: "vendor", ID: "x"}),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "state",
			err:        &usecase.StateError{Message: "vendor is cancelled"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "infrastructure",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tt.err, "test")

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["status"])
			_, hasErrors := body["errors"]
			assert.Equal(t, tt.wantErrors, hasErrors)
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handleServiceError(rec, zap.NewNop(), errors.New("pq: password authentication failed"), "test")
		assert.NotContains(t, rec.Body.String(), "password")
	})
}
