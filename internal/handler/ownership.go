package handler

import (
	"net/http"

	"github.com/banca-gt/banking-api/internal/auth"
	"github.com/banca-gt/banking-api/internal/domain"
)

// requireOwnerOrAdmin hides other users' resources behind a 404 rather than
// confirming their existence with a 403.
func requireOwnerOrAdmin(r *http.Request, account *domain.Account) *AppError {
	if auth.IsAdmin(r.Context()) {
		return nil
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return ErrMissingToken
	}

	if account.OwnerID == nil || *account.OwnerID != userID {
		return ErrResourceNotFound
	}
	return nil
}
