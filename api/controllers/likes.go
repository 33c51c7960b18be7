package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avelarsoto/communa-backend/api/responses"
	"github.com/avelarsoto/communa-backend/api/validators"
	"github.com/avelarsoto/communa-backend/internal/likes"
	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
)

type toggleLikeRequest struct {
	PostID uuid.UUID `json:"postId" validate:"required"`
}

// ToggleLike likes the post when no like exists and removes it otherwise.
func ToggleLike(svc likes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "likes service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body toggleLikeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Toggle(r.Context(), userID, body.PostID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
