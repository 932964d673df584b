package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// savePreferencesHandler handles POST /preferences.
func (s *Server) savePreferencesHandler(c *echo.Context) error {
	principal, ok := principalFrom(c)
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required").WithCode("UNAUTHORIZED"))
	}

	var req SavePreferencesRequest
	if err := bindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return s.writeError(c, validationError(err))
	}
	if err := validatePreferences(req); err != nil {
		return s.writeError(c, err)
	}

	now := time.Now().UTC()
	prefs := models.Preferences{
		UserID:         principal.Sub,
		Genres:         req.Genres,
		Themes:         req.Themes,
		ArtStyle:       req.ArtStyle,
		TargetAudience: req.TargetAudience,
		ContentRating:  req.ContentRating,
		Insights:       req.Insights,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ctx := c.Request().Context()
	if err := s.meta.SavePreferences(ctx, prefs); err != nil {
		return s.writeError(c, apperrors.Wrap(err, apperrors.KindInternal, "save preferences").WithCode("PREFERENCES_SAVE_ERROR"))
	}

	return writeSuccess(c, http.StatusOK, preferencesResponse(prefs))
}

// getPreferencesHandler handles GET /preferences. A user with no preferences
// on file yet is not an error condition here (unlike the workflow-start and
// continue-episode paths, which require them): spec §6's error table for
// this endpoint lists only 401 and 500 PREFERENCES_RETRIEVAL_ERROR, so an
// absent record returns 200 with a zero-value response instead.
func (s *Server) getPreferencesHandler(c *echo.Context) error {
	principal, ok := principalFrom(c)
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required").WithCode("UNAUTHORIZED"))
	}

	ctx := c.Request().Context()
	prefs, err := s.meta.GetLatestPreferences(ctx, principal.Sub)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return writeSuccess(c, http.StatusOK, preferencesResponse(models.Preferences{UserID: principal.Sub}))
		}
		return s.writeError(c, apperrors.Wrap(err, apperrors.KindInternal, "retrieve preferences").WithCode("PREFERENCES_RETRIEVAL_ERROR"))
	}

	return writeSuccess(c, http.StatusOK, preferencesResponse(*prefs))
}

func preferencesResponse(p models.Preferences) PreferencesResponse {
	return PreferencesResponse{
		Genres:         p.Genres,
		Themes:         p.Themes,
		ArtStyle:       p.ArtStyle,
		TargetAudience: p.TargetAudience,
		ContentRating:  p.ContentRating,
		Insights:       p.Insights,
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}
