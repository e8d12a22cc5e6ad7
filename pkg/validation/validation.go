// Package validation registers the custom binding tags used by request structs
// on gin's validator engine.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/importflow/importflow/backend/go-services/internal/models"
	"github.com/importflow/importflow/backend/go-services/internal/process"
)

var once sync.Once

// Register installs processstatus, docstatus, doctype and isodate on gin's
// default validator and reports field errors by their json names. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("processstatus", func(fl validator.FieldLevel) bool {
			return process.ValidStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("docstatus", func(fl validator.FieldLevel) bool {
			return models.ValidProcessingStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
			return models.KnownDocumentType(fl.Field().String())
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		})
	})
}

// Message renders a binding error as a short client-facing message.
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "processstatus", "docstatus":
			parts = append(parts, fmt.Sprintf("%s has an unknown status", fe.Field()))
		case "doctype":
			parts = append(parts, fmt.Sprintf("%s is not a known document type", fe.Field()))
		case "isodate":
			parts = append(parts, fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
