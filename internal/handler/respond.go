package handler

import (
	"errors"
	"net/http"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError translates a service error into its HTTP status and the error
// envelope. Internal causes are logged and hidden from the caller.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unclassified error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse("Internal server error", ""))
		return
	}

	if appErr.Code == apperrors.CodeInternal {
		logger.Error("internal error", "path", c.Request.URL.Path, "error", appErr)
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse("Internal server error", ""))
		return
	}

	c.JSON(appErr.Code.HTTPStatus(), model.NewErrorResponse(appErr.Message, ""))
}

// currentUserID reads the authenticated caller's id from the context; it is
// only absent when a route was wired without the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("Authentication required", ""))
		return primitive.NilObjectID, false
	}
	return userID, true
}

// pathObjectID parses an ObjectID path parameter, rejecting the request with
// a 400 when the value is not a valid id.
func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid "+name, ""))
		return primitive.NilObjectID, false
	}
	return id, true
}
