// Package device holds the registry of managed devices: what they are
// called, how to reach them, and what was last observed about them.
package device

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/go-playground/validator/v10"
)

// Status values recorded from the last metrics collection.
const (
	StatusUnknown = "unknown"
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ErrNotFound is wrapped by every lookup of a missing or malformed ID.
var ErrNotFound = stderrors.New("device not found")

// ConnectionSpec is the minimum needed to reach a device over SSH.
type ConnectionSpec struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"min=1,max=65535"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Target converts the connection details for the SSH layer.
func (s ConnectionSpec) Target() sshutil.Target {
	return sshutil.Target{
		Host:     s.Host,
		Port:     s.Port,
		User:     s.Username,
		Password: s.Password,
	}
}

// Device is a registered device.
type Device struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	LastSeen    *time.Time `json:"lastSeen"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Spec returns the device's connection details.
func (d Device) Spec() ConnectionSpec {
	return ConnectionSpec{
		Host:     d.Host,
		Port:     d.Port,
		Username: d.Username,
		Password: d.Password,
	}
}

// NewDevice is the input for registering a device.
type NewDevice struct {
	Name        string `json:"name" validate:"required"`
	Host        string `json:"host" validate:"required"`
	Port        int    `json:"port" validate:"required,min=1,max=65535"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	Description string `json:"description"`
}

var validate = validator.New()

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		messages[i] = f.Message
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// Validate checks a struct's validate tags. Failures come back as a
// DEVICE error wrapping a *ValidationError.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.WrapWithCode(err, errors.ErrDevice, "Invalid device", "")
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   jsonName(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return errors.WrapWithCode(verr, errors.ErrDevice, "Invalid device", "")
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// jsonName lowercases the first letter, matching the json tags above.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func notFound(id string) error {
	return errors.WrapWithCode(ErrNotFound, errors.ErrDevice,
		fmt.Sprintf("Device not found: %s", id),
		"List registered devices with: sedm device list")
}
