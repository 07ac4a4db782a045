package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemWritesRFC7807(t *testing.T) {
	res := httptest.NewRecorder()
	Problem(res, http.StatusConflict, "Duplicate", "already there")

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &p))
	assert.Equal(t, ProblemDetail{Type: "about:blank", Title: "Duplicate", Status: http.StatusConflict, Detail: "already there"}, p)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("roles: %w", ErrNotFound): http.StatusNotFound,
		ErrDuplicate:                         http.StatusConflict,
		ErrValidation:                        http.StatusBadRequest,
		ErrForbidden:                         http.StatusForbidden,
		ErrUnauthorized:                      http.StatusUnauthorized,
		fmt.Errorf("boom"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		res := httptest.NewRecorder()
		RespondError(res, err)
		assert.Equal(t, want, res.Code, err.Error())
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`))
	require.NoError(t, DecodeJSON(req, &p))
	assert.Equal(t, "Ada", p.Name)

	for _, body := range []string{`{"name":"Ada","extra":1}`, `{"name":"Ada"}{}`, `not json`} {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		assert.ErrorIs(t, DecodeJSON(req, &p), ErrValidation, body)
	}
}
