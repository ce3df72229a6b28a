package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollow_FollowListAppearsAfterFirstFollow(t *testing.T) {
	app, _ := newTestApp(t, nil)
	signUp(t, app, "Alice", "a@x.com")
	signUp(t, app, "Bob", "b@x.com")

	status, raw := doJSON(t, app, http.MethodPost, "/follow", `{"id":1,"follow":2}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	body := decode[map[string]any](t, raw)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, []any{float64(2)}, body["follow"])
	assert.NotContains(t, body, "password")

	// Following twice leaves one edge.
	status, raw = doJSON(t, app, http.MethodPost, "/follow", `{"id":1,"follow":2}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{float64(2)}, decode[map[string]any](t, raw)["follow"])

	status, raw = doJSON(t, app, http.MethodPost, "/unfollow", `{"id":1,"follow":2}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, decode[map[string]any](t, raw)["follow"])

	// Unfollowing someone not followed is a no-op.
	status, _ = doJSON(t, app, http.MethodPost, "/unfollow", `{"id":1,"follow":2}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestFollow_Errors(t *testing.T) {
	app, _ := newTestApp(t, nil)
	signUp(t, app, "Alice", "a@x.com")

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode string
	}{
		{"self follow", "/follow", `{"id":1,"follow":1}`, "SELF_FOLLOW"},
		{"unknown self follow", "/follow", `{"id":9,"follow":9}`, "SELF_FOLLOW"},
		{"unknown followee", "/follow", `{"id":1,"follow":2}`, "NOT_FOUND"},
		{"unknown follower", "/follow", `{"id":3,"follow":1}`, "NOT_FOUND"},
		{"unfollow unknown", "/unfollow", `{"id":1,"follow":2}`, "NOT_FOUND"},
		{"missing follow", "/follow", `{"id":1}`, "VALIDATION_ERROR"},
		{"missing id", "/unfollow", `{"follow":1}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := doJSON(t, app, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantCode, decode[map[string]any](t, raw)["code"])
		})
	}

	_, raw := doJSON(t, app, http.MethodGet, "/user/1", "")
	assert.Equal(t, "Alice", decode[map[string]any](t, raw)["name"])
}

func TestFollow_AcceptsNumericStrings(t *testing.T) {
	app, _ := newTestApp(t, nil)
	signUp(t, app, "Alice", "a@x.com")
	signUp(t, app, "Bob", "b@x.com")

	status, raw := doJSON(t, app, http.MethodPost, "/follow", `{"id":"1","follow":"2"}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, []any{float64(2)}, decode[map[string]any](t, raw)["follow"])

	status, _ = doJSON(t, app, http.MethodPost, "/follow", `{"id":"one","follow":2}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTimeline_Scenario(t *testing.T) {
	app, _ := newTestApp(t, nil)
	alice := signUp(t, app, "Alice", "a@x.com")
	bob := signUp(t, app, "Bob", "b@x.com")

	status, _ := doJSON(t, app, http.MethodPost, "/follow", `{"id":1,"follow":2}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodPost, "/tweet", `{"id":2,"tweet":"hi"}`)
	require.Equal(t, http.StatusOK, status)

	status, raw := doJSON(t, app, http.MethodGet, "/timeline/1", "")
	require.Equal(t, http.StatusOK, status)
	tl := decode[map[string]any](t, raw)
	assert.Equal(t, float64(alice), tl["user_id"])
	entries := tl["timeline"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, float64(bob), entry["user_id"])
	assert.Equal(t, "hi", entry["tweet"])
	assert.Equal(t, []any{}, entry["likes"])

	status, raw = doJSON(t, app, http.MethodGet, "/timeline/2", "")
	require.Equal(t, http.StatusOK, status)
	for _, e := range decode[map[string]any](t, raw)["timeline"].([]any) {
		assert.NotEqual(t, float64(alice), e.(map[string]any)["user_id"])
	}
}

func TestTimeline_Errors(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, raw := doJSON(t, app, http.MethodGet, "/timeline/1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NOT_FOUND", decode[map[string]any](t, raw)["code"])

	status, raw = doJSON(t, app, http.MethodGet, "/timeline/x", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", decode[map[string]any](t, raw)["error"])
}

func TestTimeline_EmptyIsArray(t *testing.T) {
	app, _ := newTestApp(t, nil)
	signUp(t, app, "Alice", "a@x.com")

	status, raw := doJSON(t, app, http.MethodGet, "/timeline/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"user_id":1,"timeline":[]}`, string(raw))
}
