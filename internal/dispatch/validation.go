package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"subsim-ctl/internal/simclient"
)

// ValidationError short-circuits a command before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// profileForm carries the save-config rules. The simulator stores the
// username as nullable, so it is optional here too.
type profileForm struct {
	Note     string `json:"note" validate:"required,max=100"`
	Broker   string `json:"broker" validate:"required,max=255"`
	Port     string `json:"port" validate:"required,portnum"`
	Topic    string `json:"topic" validate:"required,max=255"`
	Username string `json:"username" validate:"omitempty,max=128"`
}

type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("portnum", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 1 && n <= 65535
	})
	return &formValidator{v: v}
}

// profile trims and validates in, returning the cleaned input.
func (f *formValidator) profile(in simclient.ProfileInput) (simclient.ProfileInput, *ValidationError) {
	form := profileForm{
		Note:     strings.TrimSpace(in.Note),
		Broker:   strings.TrimSpace(in.Broker),
		Port:     strings.TrimSpace(in.Port),
		Topic:    strings.TrimSpace(in.Topic),
		Username: strings.TrimSpace(in.Username),
	}
	if err := f.v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return simclient.ProfileInput{}, fieldError(verrs[0])
		}
		return simclient.ProfileInput{}, &ValidationError{Field: "profile", Reason: err.Error()}
	}
	return simclient.ProfileInput(form), nil
}

func fieldError(fe validator.FieldError) *ValidationError {
	reason := fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "portnum":
		reason = "must be a port number between 1 and 65535"
	case "max":
		reason = "must be at most " + fe.Param() + " characters"
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}
