// Package validation checks inbound data-provider requests before any collaborator is consulted.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator. Field errors are reported with JSON names.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var fieldLabels = map[string]string{
	"dashboardId": "Dashboard Id",
	"username":    "Username",
	"widgetName":  "Widget Name",
}

// ValidateSubscriptionRequest checks the fields required for a non-UNSUBSCRIBE request.
// The first missing field is reported as a *domain.Error of kind validation wrapping a
// *ValidationError.
func ValidateSubscriptionRequest(req *domain.SubscriptionRequest) error {
	if req == nil {
		return domain.NewValidationError("", "data provider request cannot be empty", domain.ErrInvalidInput)
	}
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", "invalid data provider request", err)
	}

	fe := fieldErrs[0]
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	message := label + " in the data provider config cannot be empty"
	if fe.Tag() != "required" {
		message = label + " failed on the '" + fe.Tag() + "' rule"
	}
	return domain.NewValidationError(fe.Field(), message, NewValidationError(fe.Field(), "", message))
}
