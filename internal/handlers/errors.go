package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/middleware"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HTTPErrorHandler writes every error as {"message": "..."} with the status of its kind.
// Internal errors are logged and answered with a generic message.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		var appErr *apperrors.Error
		switch {
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else if he.Message != nil {
				message = http.StatusText(status)
			}
		case errors.As(err, &appErr):
			status = apperrors.HTTPStatus(appErr.Kind)
			message = appErr.Message
		}

		if status >= http.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"message": message})
		}
		if err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}

// getUserIDFromContext returns the authenticated user's id, or the zero id for anonymous requests
func getUserIDFromContext(c echo.Context) primitive.ObjectID {
	claims, ok := c.Get(middleware.UserContextKey).(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

func requireUserID(c echo.Context) (primitive.ObjectID, error) {
	id := getUserIDFromContext(c)
	if id.IsZero() {
		return id, apperrors.Unauthorized("User not authenticated")
	}
	return id, nil
}

func objectIDParam(c echo.Context, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return id, apperrors.Validation("Invalid " + what + " ID")
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs the registered validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
