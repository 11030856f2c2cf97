package service

import (
	"context"
	stderrors "errors"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/profile"
)

// ProfileSource looks profiles up by user id. *profile.Store satisfies it.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*models.StudentProfile, error)
}

var errNoProfileStore = stderrors.New("profile store not configured")

// ResolveProfile returns the inline profile when one is given, otherwise the stored profile of
// userID. An inline profile without a user id inherits userID.
func ResolveProfile(ctx context.Context, src ProfileSource, userID string, inline *models.StudentProfile) (models.StudentProfile, error) {
	if inline != nil {
		p := *inline
		if p.UserID == "" {
			p.UserID = userID
		}
		return p, nil
	}
	if userID == "" {
		return models.StudentProfile{}, errors.NewInvalidInputError("studentProfile or userId is required")
	}
	if src == nil {
		return models.StudentProfile{}, errors.NewProfileStoreFailedError(errNoProfileStore)
	}

	p, err := src.Get(ctx, userID)
	switch {
	case err == nil:
		return *p, nil
	case stderrors.Is(err, profile.ErrNotFound):
		return models.StudentProfile{}, errors.NewProfileNotFoundError(userID)
	case stderrors.Is(err, context.DeadlineExceeded):
		return models.StudentProfile{}, errors.NewTimeoutError("profile-store", err)
	default:
		return models.StudentProfile{}, errors.NewProfileStoreFailedError(err)
	}
}
