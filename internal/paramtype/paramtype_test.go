package paramtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringValidate(t *testing.T) {
	p := NewString("compilation")
	assert.NoError(t, p.Validate("alone"))
	assert.Error(t, p.Validate(42.0))
}

func TestIntValidateAndParse(t *testing.T) {
	p := NewInt("num_processes")
	assert.NoError(t, p.Validate(float64(2)))
	assert.Error(t, p.Validate(2.5))
	assert.Error(t, p.Validate("2"))
	v, err := p.ParseString("3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestChoiceValidateAndParse(t *testing.T) {
	p := NewChoice("output_eval", map[string]string{"diff": "Whitediff", "comparator": "Checker"})
	assert.NoError(t, p.Validate("diff"))
	assert.Error(t, p.Validate("unknown"))
	v, err := p.ParseString("comparator")
	require.NoError(t, err)
	assert.Equal(t, "comparator", v)
	_, err = p.ParseString("bogus")
	assert.Error(t, err)
}

func TestCollectionValidate(t *testing.T) {
	io := NewCollection("io", []Parameter{NewString("input"), NewString("output")})
	assert.NoError(t, io.Validate([]Value{"in.txt", "out.txt"}))
	assert.Error(t, io.Validate([]Value{"in.txt"}))
	assert.Error(t, io.Validate("not-a-list"))
	_, err := io.ParseString("x")
	assert.Error(t, err)
}

func TestValidateSchemaLengthAndElements(t *testing.T) {
	schema := []Parameter{
		NewChoice("compilation", map[string]string{"alone": "", "grader": ""}),
		NewCollection("io", []Parameter{NewString("in"), NewString("out")}),
		NewChoice("output_eval", map[string]string{"diff": "", "comparator": ""}),
	}
	values := []Value{"alone", []Value{"", ""}, "diff"}
	assert.NoError(t, ValidateSchema(schema, values))
	assert.Error(t, ValidateSchema(schema, values[:2]))
}
