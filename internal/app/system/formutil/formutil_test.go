package formutil_test

import (
	"testing"

	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
)

func TestErrors_SetResult(t *testing.T) {
	var e formutil.Errors
	e.SetResult(&inputval.Result{Errors: []inputval.FieldError{
		{Field: "Title", Message: "Título é obrigatório."},
		{Field: "Priority", Message: "Prioridade desconhecida."},
	}})

	if !e.HasErrors() {
		t.Fatal("expected errors")
	}
	if e.FieldError("Title") != "Título é obrigatório." {
		t.Errorf("Title error = %q", e.FieldError("Title"))
	}
	if string(e.Error) != "Título é obrigatório." {
		t.Errorf("form error = %q", e.Error)
	}
}

func TestErrors_Empty(t *testing.T) {
	var e formutil.Errors
	e.SetResult(&inputval.Result{})
	if e.HasErrors() || e.FieldError("Title") != "" {
		t.Errorf("expected no errors, got %+v", e)
	}
}

func TestErrors_SetErrorEscapes(t *testing.T) {
	var e formutil.Errors
	e.SetError("<b>oops</b>")
	if string(e.Error) != "&lt;b&gt;oops&lt;/b&gt;" {
		t.Errorf("unescaped error: %q", e.Error)
	}
	e.SetField("Label", "Já existe.")
	if e.FieldError("Label") != "Já existe." {
		t.Errorf("SetField not applied")
	}
}
