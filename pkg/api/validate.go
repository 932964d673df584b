package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// validationError flattens a validator.ValidationErrors into one
// VALIDATION_ERROR AppError, since the HTTP envelope carries a single
// message string (spec §6).
func validationError(err error) *apperrors.AppError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// validatePreferences checks the closed enum sets spec §6 defines, which
// the struct-tag validator does not express well (multi-word values).
func validatePreferences(req SavePreferencesRequest) error {
	for _, g := range req.Genres {
		if !contains(models.Genres, g) {
			return apperrors.Newf(apperrors.KindValidation, "unknown genre %q", g)
		}
	}
	if !contains(models.ArtStyles, req.ArtStyle) {
		return apperrors.Newf(apperrors.KindValidation, "unknown artStyle %q", req.ArtStyle)
	}
	if !contains(models.TargetAudiences, req.TargetAudience) {
		return apperrors.Newf(apperrors.KindValidation, "unknown targetAudience %q", req.TargetAudience)
	}
	if !contains(models.ContentRatings, req.ContentRating) {
		return apperrors.Newf(apperrors.KindValidation, "unknown contentRating %q", req.ContentRating)
	}
	return nil
}
