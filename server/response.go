package server

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// RespondWithError answers with the status and body of the AppError in err's
// chain. Anything else becomes a 500 INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	respondAppError(c, appErr.HTTPStatus, appErr)
}

// respondAppError writes appErr with the request id the RequestID middleware
// stored on the context.
func respondAppError(c *gin.Context, status int, appErr *apperrors.AppError) {
	resp := appErr.ToResponse().WithRequestID(logger.RequestIDFromContext(c.Request.Context()))
	c.AbortWithStatusJSON(status, resp)
}
