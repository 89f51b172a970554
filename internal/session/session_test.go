package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
)

func TestSnapshotMergesRoles(t *testing.T) {
	u := &models.User{ID: uuid.New(), Username: "clubwho"}
	a := Snapshot(u, []models.Role{
		{Name: "runner", Capabilities: access.Capabilities{Runner: true}, Event: "ASM2024"},
		{Name: "content", Capabilities: access.Capabilities{ManageContent: true}},
		{Name: "tech", Capabilities: access.Capabilities{Volunteer: true}, Event: "ASM2024"},
	})
	assert.Equal(t, "clubwho", a.Username)
	assert.True(t, a.Has(access.CapRunner))
	assert.True(t, a.Has(access.CapManageContent))
	assert.True(t, a.Has(access.CapVolunteer))
	assert.False(t, a.Has(access.CapAdmin))
	assert.Equal(t, []string{"ASM2024"}, a.Events)
}

func TestIssueAndResolve(t *testing.T) {
	m := NewManager("secret", time.Hour)
	actor := &access.Actor{ID: uuid.New(), Username: "clubwho", Capabilities: access.Capabilities{Admin: true}}
	token, err := m.Issue(actor)
	require.NoError(t, err)

	s := m.Resolve(token)
	require.NotNil(t, s.Actor())
	assert.Equal(t, actor.ID, s.Actor().ID)
	assert.Equal(t, "clubwho", s.Actor().Identity())
	assert.True(t, s.Actor().Has(access.CapAdmin))
	assert.False(t, s.Scope().IsElevated())
}

func TestResolveFailuresAreAnonymous(t *testing.T) {
	m := NewManager("secret", time.Hour)
	other := NewManager("other", time.Hour)
	forged, err := other.Issue(&access.Actor{ID: uuid.New(), Username: "mallory"})
	require.NoError(t, err)

	expired := NewManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(&access.Actor{ID: uuid.New(), Username: "old"})
	require.NoError(t, err)

	for name, token := range map[string]string{"empty": "", "garbage": "not-a-jwt", "forged": forged, "expired": stale} {
		s := m.Resolve(token)
		assert.Nil(t, s.Actor(), name)
		assert.Equal(t, access.EffectDeny, s.Scope().Decide(access.RecordTicket, access.OpQuery).Effect, name)
	}
}

func TestElevateIsExplicit(t *testing.T) {
	s := Anonymous()
	scope := s.Elevate("account verification")
	assert.True(t, scope.IsElevated())
	assert.Equal(t, "account verification", scope.Reason())
	assert.False(t, s.Scope().IsElevated())
}

func TestGinHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, From(c).Actor())

	a := &access.Actor{Username: "clubwho"}
	Set(c, WithActor(a))
	assert.Same(t, a, From(c).Actor())
}
