package handlers

import (
	"errors"
	"net/http"

	"threadloom/internal/errs"
	"threadloom/internal/middleware"
	"threadloom/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations hooks custom rules into gin's binding validator.
// Called once from main.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("savemode", func(fl validator.FieldLevel) bool {
			return models.SaveMode(fl.Field().String()).Valid()
		})
	}
}

// fail maps the error taxonomy onto HTTP statuses in one place.
func fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	var status int
	switch kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindAuthorization:
		status = http.StatusForbidden
	case errs.KindConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	message := "internal error"
	var e *errs.Error
	if errors.As(err, &e) && kind != errs.KindInternal {
		message = e.Message
	}
	c.JSON(status, gin.H{"error": gin.H{"kind": kind.String(), "message": message}})
}

func badRequest(c *gin.Context, err error) {
	fail(c, errs.Validation("%v", err))
}

// currentUser returns the session user loaded by the middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(middleware.CheckUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// viewerID is the acting user's id, 0 for anonymous callers.
func viewerID(c *gin.Context) uint {
	if user, ok := currentUser(c); ok {
		return user.ID
	}
	return 0
}
