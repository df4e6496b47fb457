// Package tools defines the interface shared by the DSA tools and the
// manager that owns them.
package tools

import (
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Names of the persisted tool properties.
const (
	PackageDirectoryProperty = "PackageDirectory"
	CurrentPackageProperty   = "CurrentPackage"
	PackageIndexProperty     = "PackageIndex"
)

// Error types reported by tools.
const (
	ErrTypeNotFound           = "not_found"
	ErrTypeUnsupportedFormat  = "unsupported_format"
	ErrTypeOperationFailed    = "operation_failed"
	ErrTypeInvalidArgument    = "invalid_argument"
	ErrTypeDownloadInProgress = "download_in_progress"
)

// Properties are named tool settings.
type Properties map[string]any

// Property is a named property value.
type Property struct {
	Name  string
	Value any
}

// Tool is the interface that describes a tool controller.
type Tool interface {
	// Returns the tool name.
	ToolName() string

	// Applies the properties the tool understands. Unknown properties are
	// ignored.
	SetProperties(Properties)

	// Returns the signals every tool emits.
	Events() *Events

	// Releases the tool connections and stops acting on pending
	// completions.
	Close()
}

// ToolError is an error reported to the host for display.
type ToolError struct {
	Message    string
	Additional string
	Type       string
}

func (e ToolError) Error() string {
	if e.Additional == "" {
		return e.Message
	}
	return e.Message + ": " + e.Additional
}

// NewToolError returns a ToolError describing err.
func NewToolError(message string, err error) ToolError {
	te := ToolError{Message: message}
	if err != nil {
		te.Additional = err.Error()
		te.Type = errors.Type(err)
	}
	return te
}

// Events holds the signals emitted by every tool. Tools embed it.
type Events struct {
	// Emitted when a persisted property changes.
	PropertyChanged notify.Signal[Property]

	// Emitted when an operation fails in a way the host should display.
	ErrorOccurred notify.Signal[ToolError]
}

// Events returns e. It lets tools satisfy the Tool interface by embedding
// Events.
func (e *Events) Events() *Events {
	return e
}

// ReportError emits err on ErrorOccurred.
func (e *Events) ReportError(message string, err error) {
	e.ErrorOccurred.Emit(NewToolError(message, err))
}

// ChangeProperty emits a property change.
func (e *Events) ChangeProperty(name string, v any) {
	e.PropertyChanged.Emit(Property{Name: name, Value: v})
}

// String returns the string value of a property.
func (p Properties) String(name string) (string, bool) {
	v, ok := p[name].(string)
	return v, ok
}

// Int returns the integer value of a property. Whole JSON numbers are
// accepted.
func (p Properties) Int(name string) (int, bool) {
	switch v := p[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
