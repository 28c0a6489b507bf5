package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorbiz/gestor-backend/internal/platform/apierr"
	"github.com/gestorbiz/gestor-backend/internal/txn"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

// RespondFromError maps the domain error taxonomy onto HTTP statuses so
// handlers do not repeat the switch. Unknown errors come back as a 500.
func RespondFromError(c *gin.Context, err error) {
	var (
		ve *validation.ValidationError
		re *validation.ReferenceError
		fe *validation.FileConstraintError
		se *txn.StepError
		ae *apierr.Error
	)
	switch {
	case errors.As(err, &ve):
		RespondError(c, http.StatusUnprocessableEntity, "validation_failed", err)
	case errors.As(err, &re):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_reference", err)
	case errors.As(err, &fe):
		RespondError(c, http.StatusBadRequest, "file_rejected", err)
	case errors.As(err, &se):
		RespondError(c, http.StatusBadGateway, "step_failed:"+se.Step, err)
	case errors.As(err, &ae):
		RespondError(c, ae.Status, ae.Code, err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
