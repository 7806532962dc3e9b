package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactInput struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Email   string   `json:"email" validate:"required,email"`
	Message string   `json:"message" validate:"required,min=10"`
	Price   int64    `json:"price" validate:"gte=0"`
	Images  []string `json:"images" validate:"dive,url"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(contactInput{Email: "no-es-correo", Message: "hola", Price: -1, Images: []string{"nope"}})
	var fields FieldErrors
	require.True(t, errors.As(err, &fields))

	assert.Equal(t, "es obligatorio", fields["name"])
	assert.Equal(t, "debe ser un correo electrónico válido", fields["email"])
	assert.Equal(t, "debe tener al menos 10 caracteres", fields["message"])
	assert.Equal(t, "debe ser mayor o igual a 0", fields["price"])
	assert.Equal(t, "debe ser una URL válida", fields["images[0]"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	err := Struct(contactInput{
		Name:    "Ana",
		Email:   "ana@example.com",
		Message: "Quisiera cotizar la torre",
		Images:  []string{"https://storage.googleapis.com/b/o.jpg"},
	})
	assert.NoError(t, err)
}

func TestVar(t *testing.T) {
	err := Var("password", "123", "min=6")
	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "debe tener al menos 6 caracteres", fields["password"])
	assert.NoError(t, Var("password", "123456", "min=6"))
}
