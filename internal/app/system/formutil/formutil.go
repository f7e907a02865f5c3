// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form should be re-rendered with:
// - The user's previously entered values (echoed back)
// - A message per invalid field, plus an optional form-level message
// - All the context data needed for the form (dropdowns, etc.)
//
// Example usage:
//
//	type ticketFormData struct {
//		viewdata.BaseVM
//		formutil.Errors
//		Title string
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//		data.SetResult(res)
//		templates.Render(w, r, "ticket_new", data)
//		return
//	}
package formutil

import (
	"html/template"

	"github.com/dalemusser/zelus/internal/app/system/inputval"
)

// Errors holds the messages shown next to form fields.
type Errors struct {
	Error  template.HTML
	Fields map[string]string
}

// SetResult copies validation messages into e. The first message also
// becomes the form-level error.
func (e *Errors) SetResult(res *inputval.Result) {
	if !res.HasErrors() {
		return
	}
	e.Fields = res.ByField()
	e.Error = template.HTML(template.HTMLEscapeString(res.First()))
}

// SetError sets a form-level message. msg is escaped.
func (e *Errors) SetError(msg string) {
	e.Error = template.HTML(template.HTMLEscapeString(msg))
}

// SetField sets the message for one field.
func (e *Errors) SetField(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

// FieldError returns the message for field, or "".
func (e Errors) FieldError(field string) string {
	return e.Fields[field]
}

// HasErrors reports whether any message is set.
func (e Errors) HasErrors() bool {
	return e.Error != "" || len(e.Fields) > 0
}
