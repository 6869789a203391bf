package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/services"
	"github.com/taskwise/backend/pkg/logger"
	"github.com/taskwise/backend/pkg/response"
)

// toAppError maps service errors onto the API error taxonomy. Errors it does
// not recognise are returned unchanged and end up as 500s.
func toAppError(err error) error {
	var appErr *response.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, services.ErrRoleNameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyMember):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrRoleInUse),
		errors.Is(err, services.ErrUserInUse):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrNotMember):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrUserInactive):
		return response.NewForbidden(err.Error())
	}
	return err
}

// fail writes err as an API error, logging anything that becomes a 500.
func fail(c *gin.Context, err error) {
	mapped := toAppError(err)
	var appErr *response.AppError
	if !errors.As(mapped, &appErr) {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	response.Error(c, mapped)
}

// PageQuery is the skip/limit pair accepted by listing endpoints.
type PageQuery struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func bindPage(c *gin.Context) (PageQuery, bool) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return q, false
	}
	if q.Limit == 0 {
		q.Limit = 100
	}
	return q, true
}
