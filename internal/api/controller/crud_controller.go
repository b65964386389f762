package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CrudService defines the storage operations a CrudController drives.
// T is the record, C the create payload and P the partial update payload.
type CrudService[T, C, P any] interface {
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, in C) (T, error)
	Update(ctx context.Context, id string, patch P) (T, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// normalizer is implemented by payloads that clean themselves up before validation.
type normalizer interface {
	Normalize()
}

// FieldError describes one rejected field of a request.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// CrudController provides generic CRUD handlers for a resource identified by an opaque :id.
type CrudController[T, C, P any] struct {
	Service   CrudService[T, C, P]
	Validator *validator.Validate
	// Resource names the record in error messages, e.g. "movie".
	Resource string
}

// GetAll handles GET requests to list all resources.
func (cc *CrudController[T, C, P]) GetAll(c *gin.Context) {
	items, err := cc.Service.All(c.Request.Context())
	if err != nil {
		cc.respondError(c, err, "list")
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET requests for a single resource.
func (cc *CrudController[T, C, P]) Get(c *gin.Context) {
	id, ok := cc.idParam(c)
	if !ok {
		return
	}
	item, err := cc.Service.Get(c.Request.Context(), id)
	if err != nil {
		cc.respondError(c, err, "read")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST requests. The new record is returned with 201.
func (cc *CrudController[T, C, P]) Create(c *gin.Context) {
	var in C
	if !cc.bind(c, &in) {
		return
	}
	item, err := cc.Service.Create(c.Request.Context(), in)
	if err != nil {
		cc.respondError(c, err, "create")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT requests carrying a partial record.
func (cc *CrudController[T, C, P]) Update(c *gin.Context) {
	id, ok := cc.idParam(c)
	if !ok {
		return
	}
	var patch P
	if !cc.bind(c, &patch) {
		return
	}
	item, err := cc.Service.Update(c.Request.Context(), id, patch)
	if err != nil {
		cc.respondError(c, err, "update")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE requests. 204 when removed, 404 when nothing matched.
func (cc *CrudController[T, C, P]) Delete(c *gin.Context) {
	id, ok := cc.idParam(c)
	if !ok {
		return
	}
	removed, err := cc.Service.Delete(c.Request.Context(), id)
	if err != nil {
		cc.respondError(c, err, "delete")
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: cc.Resource + " not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *CrudController[T, C, P]) idParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + cc.Resource + " id"})
		return "", false
	}
	return id, true
}

// bind decodes the JSON body into dst, normalizes it and validates it.
// On failure the 400 response has already been written.
func (cc *CrudController[T, C, P]) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		resp := ErrorResponse{Error: "invalid payload"}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			resp.Fields = []FieldError{{
				Field:   typeErr.Field,
				Rule:    "type",
				Message: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type),
			}}
		}
		c.JSON(http.StatusBadRequest, resp)
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.Normalize()
	}
	if cc.Validator == nil {
		return true
	}
	if err := cc.Validator.Struct(dst); err != nil {
		respondValidation(c, fmt.Sprintf("invalid %s data", cc.Resource), err)
		return false
	}
	return true
}

func (cc *CrudController[T, C, P]) respondError(c *gin.Context, err error, action string) {
	switch {
	case errdefs.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: cc.Resource + " not found"})
	case errdefs.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errdefs.IsAlreadyExists(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: cc.Resource + " already exists"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timeout"})
	default:
		logger.WithComponent("api").Errorf("failed to %s %s: %v", action, cc.Resource, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("failed to %s %s", action, cc.Resource)})
	}
}

// respondValidation writes a 400 listing every rejected field.
func respondValidation(c *gin.Context, msg string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Fields: fields})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Param() == "1" {
			return fe.Field() + " must not be empty"
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "url":
		return fe.Field() + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", fe.Field(), fe.Tag())
	}
}
