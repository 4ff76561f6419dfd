package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name string `json:"name" validate:"required,max=5"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{name: "valid", body: `{"name":"abc"}`},
		{name: "missing field", body: `{}`, wantCode: http.StatusBadRequest, wantBody: `{"error":"name is required"}`},
		{name: "too long", body: `{"name":"abcdef"}`, wantCode: http.StatusBadRequest, wantBody: `{"error":"name must be at most 5 characters"}`},
		{name: "malformed", body: `{"name":`, wantCode: http.StatusBadRequest, wantBody: `{"error":"Invalid request body"}`},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest, wantBody: `{"error":"name is required"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))

			var dst sampleRequest
			err := DecodeJSON(rr, req, &dst)
			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, "abc", dst.Name)
				return
			}

			require.Error(t, err)
			WriteDecodeError(rr, err)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst sampleRequest
	err := DecodeJSON(rr, req, &dst)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusNotFound, "User not found")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"User not found"}`, rr.Body.String())
}
