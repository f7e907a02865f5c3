// internal/app/system/inputval/inputval.go
package inputval

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is a single validation failure, already phrased for display.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the field errors of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether validation failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "" when there are no errors.
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// ByField maps field names to their first message, for inline rendering.
func (r *Result) ByField() map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	for _, e := range r.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("ticketstatus", func(fl validator.FieldLevel) bool {
			return models.IsValidTicketStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("ticketpriority", func(fl validator.FieldLevel) bool {
			return models.IsValidTicketPriority(fl.Field().String())
		})
		_ = v.RegisterValidation("fractionrole", func(fl validator.FieldLevel) bool {
			return models.IsValidFractionRole(fl.Field().String())
		})
		_ = v.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
	})
	return v
}

// Validate checks a struct against its `validate` tags. Field labels come
// from the `label` tag when present.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.StructField(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s é obrigatório.", label)
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s deve ter pelo menos %s caracteres.", label, fe.Param())
	case "email", "mailaddr":
		return "Indique um email válido."
	case "url":
		return "Indique um endereço web válido."
	case "datetime":
		return fmt.Sprintf("%s deve ser uma data válida.", label)
	case "objectid":
		return fmt.Sprintf("%s não é um identificador válido.", label)
	case "ticketstatus":
		return "Estado desconhecido."
	case "ticketpriority":
		return "Prioridade desconhecida."
	case "fractionrole":
		return "Papel de fração desconhecido."
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s.", label, fe.Param())
	}
	return fmt.Sprintf("%s é inválido.", label)
}

// IsValidEmail accepts a bare address (no display name) with a
// well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	if domain == "" || strings.HasPrefix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}
	return true
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
