package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store/memory"
	"github.com/ausspeedruns/backend/pkg/response"
)

var admin = &access.Actor{Username: "admin", Capabilities: access.Capabilities{Admin: true}}

func serve(st *memory.Store, actor *access.Actor, method, path string, body any, out any) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, session.WithActor(actor)); c.Next() })
	NewHandler(st, nil).Register(r)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil {
		_ = json.Unmarshal(w.Body.Bytes(), &response.Body{Data: out})
	}
	return w.Code
}

func TestEventsVisibilityAndAdminMutations(t *testing.T) {
	st := memory.New(nil)
	runner := &access.Actor{Username: "runner", Capabilities: access.Capabilities{Runner: true}}

	var live, draft models.Event
	require.Equal(t, http.StatusCreated, serve(st, admin, http.MethodPost, "/events", EventRequest{Name: "ASM 2026", Shortname: "ASM2026", Published: true}, &live))
	require.Equal(t, http.StatusCreated, serve(st, admin, http.MethodPost, "/events", EventRequest{Name: "ASAP 2027", Shortname: "ASAP2027"}, &draft))
	assert.Equal(t, http.StatusConflict, serve(st, admin, http.MethodPost, "/events", EventRequest{Name: "dup", Shortname: "ASM2026"}, nil))

	var anonList, adminList []models.Event
	require.Equal(t, http.StatusOK, serve(st, nil, http.MethodGet, "/events", nil, &anonList))
	require.Equal(t, http.StatusOK, serve(st, admin, http.MethodGet, "/events", nil, &adminList))
	require.Len(t, anonList, 1)
	assert.Equal(t, "ASM2026", anonList[0].Shortname)
	assert.Len(t, adminList, 2)

	assert.Equal(t, http.StatusNotFound, serve(st, runner, http.MethodGet, "/event/ASAP2027", nil, nil))
	assert.Equal(t, http.StatusOK, serve(st, runner, http.MethodGet, "/event/ASM2026", nil, nil))

	assert.Equal(t, http.StatusForbidden, serve(st, runner, http.MethodPost, "/events", EventRequest{Name: "x", Shortname: "X"}, nil))
	// the draft is invisible to non-admins, so it is not found rather than forbidden
	assert.Equal(t, http.StatusNotFound, serve(st, runner, http.MethodDelete, "/events/"+draft.ID.String(), nil, nil))
	assert.Equal(t, http.StatusForbidden, serve(st, runner, http.MethodDelete, "/events/"+live.ID.String(), nil, nil))

	var updated models.Event
	require.Equal(t, http.StatusOK, serve(st, admin, http.MethodPut, "/events/"+draft.ID.String(), EventRequest{Name: "ASAP 2027", Shortname: "ASAP2027", Published: true}, &updated))
	assert.True(t, updated.Published)
	assert.Equal(t, http.StatusNoContent, serve(st, admin, http.MethodDelete, "/events/"+live.ID.String(), nil, nil))
	assert.Equal(t, http.StatusBadRequest, serve(st, admin, http.MethodDelete, "/events/nope", nil, nil))
}
