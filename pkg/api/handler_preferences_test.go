package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePreferencesHandler_Unauthorized(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodPost, "/preferences", "", SavePreferencesRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSavePreferencesHandler_UnknownGenre(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodPost, "/preferences", "user-1", SavePreferencesRequest{
		Genres: []string{"Not A Real Genre"}, Themes: []string{"friendship"},
		ArtStyle: "Traditional", TargetAudience: "Teens", ContentRating: "PG",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavePreferencesHandler_Success(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodPost, "/preferences", "user-1", SavePreferencesRequest{
		Genres: []string{"Adventure"}, Themes: []string{"friendship"},
		ArtStyle: "Traditional", TargetAudience: "Teens", ContentRating: "PG",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "Traditional", data["artStyle"])
}

func TestGetPreferencesHandler_AbsentRecordReturnsZeroValue(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodGet, "/preferences", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Empty(t, data["artStyle"])
}

func TestGetPreferencesHandler_RoundTrip(t *testing.T) {
	s, _, _ := testServer(t)
	saveRec := doJSON(s, http.MethodPost, "/preferences", "user-1", SavePreferencesRequest{
		Genres: []string{"Adventure", "Comedy"}, Themes: []string{"friendship"},
		ArtStyle: "Traditional", TargetAudience: "Teens", ContentRating: "PG",
	})
	require.Equal(t, http.StatusOK, saveRec.Code)

	getRec := doJSON(s, http.MethodGet, "/preferences", "user-1", nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.ElementsMatch(t, []any{"Adventure", "Comedy"}, data["genres"])
}
