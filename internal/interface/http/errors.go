package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/response"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

// errorWriter maps service errors to HTTP statuses in one place.
type errorWriter struct {
	Logger *logrus.Logger
	// Verbose adds the underlying error text to 500 responses; development only.
	Verbose bool
}

func (w errorWriter) bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}

func (w errorWriter) write(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, entity.ErrInvalidCode):
		response.Error(c, http.StatusBadRequest, "invalid code", nil)
	case errors.Is(err, entity.ErrExpired):
		response.Error(c, http.StatusBadRequest, "code expired", nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "unauthenticated", nil)
	case errors.Is(err, application.ErrForbidden):
		response.Error(c, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, application.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, application.ErrDuplicate):
		response.Error(c, http.StatusConflict, "email already registered", nil)
	case errors.Is(err, application.ErrAlreadyVerified):
		response.Error(c, http.StatusConflict, "email already verified", nil)
	case errors.Is(err, application.ErrStorageUnavailable):
		w.log(c, err)
		response.Error(c, http.StatusServiceUnavailable, "storage unavailable", nil)
	case errors.Is(err, application.ErrNotifyFailed):
		w.log(c, err)
		response.Error(c, http.StatusInternalServerError, "could not deliver code, try again", w.detail(err))
	default:
		w.log(c, err)
		response.Error(c, http.StatusInternalServerError, "internal server error", w.detail(err))
	}
}

func (w errorWriter) detail(err error) any {
	if w.Verbose {
		return err.Error()
	}
	return nil
}

func (w errorWriter) log(c *gin.Context, err error) {
	_ = c.Error(err)
	if w.Logger == nil {
		return
	}
	w.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error("request failed")
}
