package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		data     interface{}
		wantBody map[string]interface{}
	}{
		{
			name:     "delete acknowledgement",
			code:     http.StatusOK,
			data:     map[string]string{"message": "task deleted"},
			wantBody: map[string]interface{}{"message": "task deleted"},
		},
		{
			name: "entity with id",
			code: http.StatusCreated,
			data: struct {
				ID    int64  `json:"id"`
				Title string `json:"title"`
			}{ID: 7, Title: "buy milk"},
			wantBody: map[string]interface{}{"id": float64(7), "title": "buy milk"},
		},
		{
			name:     "empty list",
			code:     http.StatusOK,
			data:     map[string]interface{}{"tasks": []interface{}{}},
			wantBody: map[string]interface{}{"tasks": []interface{}{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

			JSON(w, r, tt.code, tt.data)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		code    int
		message string
	}{
		{http.StatusBadRequest, "title is required"},
		{http.StatusUnauthorized, "missing or invalid token"},
		{http.StatusNotFound, "task not found"},
		{http.StatusTooManyRequests, "rate limit exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

			Error(w, r, tt.code, tt.message)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, map[string]string{"error": tt.message}, got)
		})
	}
}

// Тело ошибки — ровно один ключ "error", без обертки
func TestError_BodyShape(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/tasks/42", nil)

	Error(w, r, http.StatusNotFound, "task not found")

	assert.Equal(t, `{"error":"task not found"}`, strings.TrimSpace(w.Body.String()))
}
