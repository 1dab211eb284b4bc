package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"engagement-controlplane/pkg/health"
	"engagement-controlplane/pkg/middleware"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/engine"
	"engagement-controlplane/services/member"
	"engagement-controlplane/services/notification"
	"engagement-controlplane/services/profile"
	"engagement-controlplane/services/testutil"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	models := append(profile.Models(), &member.Member{}, &notification.Notification{})
	db := testutil.NewTestDB(t, models...)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	provider, err := catalog.NewProvider("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	members := member.NewService(member.ServiceParams{DB: db, Node: node})
	store := profile.NewStore(profile.StoreParams{DB: db})
	eng := engine.New(engine.ServiceParams{
		Store:   store,
		Catalog: provider,
		Members: members,
		Sink:    engine.LogSink{},
		Node:    node,
	})
	notifications := notification.NewHandler(notification.HandlerParams{
		DB:      db,
		Catalog: provider,
		Node:    node,
	})
	healthSvc := health.ProvideHealth(health.HealthParams{DB: db})

	h := NewHandler(HandlerParams{
		Engine:        eng,
		Members:       members,
		Notifications: notifications,
		Catalog:       provider,
		Health:        healthSvc,
	})

	r := gin.New()
	r.Use(middleware.Error())
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createMember(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()

	w, body := doJSON(t, r, http.MethodPost, "/v1/members", gin.H{
		"name":  "Ada",
		"email": email,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return body["id"].(string)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", body["status"])
}

func TestCreateMemberAndGetRewards(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, body := doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/rewards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 15, body["lifetime_points"])
	require.EqualValues(t, 1, body["level"])

	tier := body["access_tier"].(map[string]any)
	require.Equal(t, "bronze", tier["id"])
}

func TestAwardAction(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, body := doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/actions/complete_survey", gin.H{
		"description": "Completed the onboarding survey",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 30, body["points_awarded"])
	require.Contains(t, body["new_achievements"], "survey_taker")
}

func TestAwardAction_UnknownActionIs404(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, body := doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/actions/no_such_action", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	errBody := body["error"].(map[string]any)
	require.Equal(t, "not_found", errBody["code"])
}

func TestAwardAction_UnknownMemberIs404(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/v1/members/ghost/actions/complete_survey", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPointHistoryPagination(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	for i := 0; i < 3; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/actions/complete_survey", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/points/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["entries"], 2)

	pageInfo := body["page_info"].(map[string]any)
	require.Equal(t, true, pageInfo["has_more"])

	cursor := pageInfo["next_cursor"].(string)
	w, body = doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/points/history?limit=2&cursor="+cursor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, body["entries"])
}

func TestGetAccessTier(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, body := doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/access", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bronze", body["id"])
	require.EqualValues(t, 1, body["min_level"])
}

func TestContentEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, body := doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["content"], 1)

	w, body = doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/content/vip_events/access", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, body["allowed"])

	w, _ = doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/content/no_such_item/access", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestChallengeEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := createMember(t, r, "ada@example.com")

	w, _ := doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/actions/complete_profile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/challenges", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["challenges"], 5)

	w, body = doJSON(t, r, http.MethodGet, "/v1/members/"+id+"/challenges/welcome_challenge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["completed"])

	w, body = doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/challenges/welcome_challenge/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 20, body["points_awarded"])

	// Unmet criteria map to 422.
	w, _ = doJSON(t, r, http.MethodPost, "/v1/members/"+id+"/challenges/survey_challenge/complete", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		path string
		key  string
		n    int
	}{
		{"/v1/catalog/actions", "actions", 6},
		{"/v1/catalog/achievements", "achievements", 7},
		{"/v1/catalog/tiers", "tiers", 4},
		{"/v1/catalog/challenges", "challenges", 5},
		{"/v1/catalog/content", "content", 7},
	}
	for _, tc := range cases {
		w, body := doJSON(t, r, http.MethodGet, tc.path, nil)
		require.Equal(t, http.StatusOK, w.Code, tc.path)
		require.Len(t, body[tc.key], tc.n, tc.path)
	}
}

func TestDuplicateMemberEmailIs409(t *testing.T) {
	r := newTestRouter(t)
	createMember(t, r, "ada@example.com")

	w, _ := doJSON(t, r, http.MethodPost, "/v1/members", gin.H{
		"name":  "Other",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestListMembers(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 3; i++ {
		createMember(t, r, fmt.Sprintf("member%d@example.com", i))
	}

	w, body := doJSON(t, r, http.MethodGet, "/v1/members?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["members"], 2)
}
