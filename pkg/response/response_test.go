package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/apperr"
)

func TestStatus(t *testing.T) {
	cases := map[error]int{
		apperr.ErrUnauthorized: http.StatusUnauthorized,
		apperr.ErrForbidden:    http.StatusForbidden,
		apperr.ErrIneligible:   http.StatusUnprocessableEntity,
		apperr.ErrConflict:     http.StatusConflict,
		apperr.ErrNotFound:     http.StatusNotFound,
		apperr.ErrInvalid:      http.StatusBadRequest,
		errors.New("boom"):     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func writeError(t *testing.T, err error) (int, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorHidesDetails(t *testing.T) {
	code, body := writeError(t, fmt.Errorf("ticket generate: secret mismatch: %w", apperr.ErrUnauthorized))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect api key", body.Error)
	assert.False(t, body.Success)

	code, body = writeError(t, errors.New("dial tcp 10.0.0.1:5432: refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", body.Error)
}

func TestErrorKeepsDomainMessage(t *testing.T) {
	code, body := writeError(t, fmt.Errorf("unverified user: %w", apperr.ErrIneligible))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "unverified user: not eligible", body.Error)
}
