package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validOutput(format string) bool {
	switch format {
	case outputText, outputJSON, outputYAML:
		return true
	}
	return false
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --output json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// ErrCodeUnknown is used for errors that carry no code of their own.
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError. Structured errors keep
// their code and suggestion; validation failures list the bad fields.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var sErr *errors.Error
	if !stderrors.As(err, &sErr) {
		return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
	}

	out := &JSONError{
		Code:       sErr.Code,
		Message:    errors.Message(sErr),
		Suggestion: sErr.Suggestion,
	}
	var vErr *device.ValidationError
	if stderrors.As(err, &vErr) {
		out.Details = vErr.Fields
	}
	return out
}

// writeData renders v in a machine format. Text output is handled by the
// caller, so outputText is an error here.
func writeData(w io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON:
		return WriteJSONSuccess(w, v)
	case outputYAML:
		generic, err := jsonShape(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("writeData: unsupported format %q", format)
	}
}

// jsonShape round-trips v through JSON so YAML output uses the same field
// names as the API.
func jsonShape(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
