package schema

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/visibility"
)

func compileOne(t *testing.T, src, name string) (*TypeDef, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileType(v.LookupPath(cue.ParsePath("type." + name)))
}

func TestCompileTypeBasic(t *testing.T) {
	def, err := compileOne(t, `
		type: person: {
			collection: "people"
			fields: {
				id:     string
				name:   string @visibility(user=readOnly)
				apiKey: string @visibility(user=concealed, admin=readOnly)
				age:    int
				score:  number
				active: bool
			}
		}
	`, "person")
	require.NoError(t, err)

	assert.Equal(t, "person", def.Name)
	assert.Equal(t, "people", def.Collection)
	assert.Empty(t, def.Extends)
	assert.Equal(t, []string{"active", "age", "apiKey", "id", "name", "score"}, def.Description.Names())

	age, ok := def.Description.Property("age")
	require.True(t, ok)
	assert.Equal(t, visibility.KindField, age.Kind)
	assert.Equal(t, "int", age.Type)
	score, _ := def.Description.Property("score")
	assert.Equal(t, "number", score.Type)

	attrs := def.Description.Attributes()
	assert.True(t, attrs.Get(visibility.Path{"name"}, visibility.UserClassUser).Has(visibility.ReadOnly))
	assert.True(t, attrs.Get(visibility.Path{"apiKey"}, visibility.UserClassUser).Has(visibility.Concealed))
	assert.True(t, attrs.Get(visibility.Path{"apiKey"}, visibility.UserClassAdmin).Has(visibility.ReadOnly))
	assert.False(t, attrs.Has(visibility.Path{"id"}))
}

func TestCompileTypeRootAndRepeatedClasses(t *testing.T) {
	def, err := compileOne(t, `
		type: secret: {
			fields: {
				id:    string
				vault: string @visibility(user=hidden, user=readOnly)
			} @visibility(guest=hidden)
		}
	`, "secret")
	require.NoError(t, err)

	attrs := def.Description.Attributes()
	assert.True(t, attrs.Get(visibility.Path{visibility.RootProperty}, "guest").Has(visibility.Hidden))
	assert.Equal(t,
		[]visibility.Attribute{visibility.Hidden, visibility.ReadOnly},
		attrs.Get(visibility.Path{"vault"}, visibility.UserClassUser).Slice())
}

func TestCompileTypeNestedAndArrays(t *testing.T) {
	def, err := compileOne(t, `
		type: person: {
			fields: {
				id: string
				properties: {
					special: string @visibility(user=hidden)
				}
				tags: [...string] @visibility(guest=hidden)
				addresses: [...{
					street: string @visibility(user=concealed)
				}]
			}
		}
	`, "person")
	require.NoError(t, err)

	props, ok := def.Description.Property("properties")
	require.True(t, ok)
	require.Equal(t, visibility.KindNested, props.Kind)
	_, ok = props.Nested.Property("special")
	assert.True(t, ok)

	tags, _ := def.Description.Property("tags")
	require.Equal(t, visibility.KindArray, tags.Kind)
	assert.Equal(t, "string", tags.Elem.Type)

	addresses, _ := def.Description.Property("addresses")
	require.Equal(t, visibility.KindArray, addresses.Kind)
	require.Equal(t, visibility.KindNested, addresses.Elem.Kind)

	attrs := def.Description.Attributes()
	assert.True(t, attrs.Get(visibility.Path{"properties", "special"}, visibility.UserClassUser).Has(visibility.Hidden))
	assert.True(t, attrs.Get(visibility.Path{"tags", visibility.ElementSegment}, "guest").Has(visibility.Hidden))
	assert.True(t, attrs.Get(visibility.Path{"addresses", visibility.ElementSegment, "street"}, visibility.UserClassUser).Has(visibility.Concealed))
}

func TestCompileTypeComplex(t *testing.T) {
	def, err := compileOne(t, `
		type: person: {
			fields: {
				id:       string
				parent?:  _ @complex(person)
				parents?: [..._] @complex(person)
			}
		}
	`, "person")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"parent": "person", "parents": "person"}, def.Complex)
	parents, ok := def.Description.Property("parents")
	require.True(t, ok)
	assert.Equal(t, visibility.KindArray, parents.Kind)
	parent, _ := def.Description.Property("parent")
	assert.Equal(t, "person", parent.Type)
}

func TestCompileTypeComposites(t *testing.T) {
	def, err := compileOne(t, `
		type: person: {
			fields: { id: string, first: string, last: string }
			composites: {
				fullName: string @visibility(user=readOnly, admin=hidden)
			}
		}
	`, "person")
	require.NoError(t, err)

	assert.Equal(t, []string{"fullName"}, def.Description.Composites())
	attrs := def.Description.Attributes()
	assert.True(t, attrs.Get(visibility.Path{"fullName"}, visibility.UserClassUser).Has(visibility.ReadOnly))
	assert.True(t, attrs.Get(visibility.Path{"fullName"}, visibility.UserClassAdmin).Has(visibility.Hidden))
}

func TestCompileTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing fields",
			src:   `type: bad: { collection: "bads" }`,
			field: "fields",
		},
		{
			name:  "fields not a struct",
			src:   `type: bad: { fields: "nope" }`,
			field: "fields",
		},
		{
			name:  "unknown attribute",
			src:   `type: bad: { fields: { id: string @visibility(user=invisible) } }`,
			field: "visibility",
		},
		{
			name:  "argument without class",
			src:   `type: bad: { fields: { id: string @visibility(hidden) } }`,
			field: "visibility",
		},
		{
			name:  "nested complex",
			src:   `type: bad: { fields: { inner: { ref: _ @complex(other) } } }`,
			field: "complex",
		},
		{
			name:  "complex without type",
			src:   `type: bad: { fields: { ref: _ @complex() } }`,
			field: "complex",
		},
		{
			name:  "composite over field",
			src:   `type: bad: { fields: { id: string }, composites: { id: string @visibility(user=readOnly) } }`,
			field: "composites",
		},
		{
			name:  "composite without attribute",
			src:   `type: bad: { fields: { id: string }, composites: { extra: string } }`,
			field: "composites",
		},
		{
			name:  "extends itself",
			src:   `type: bad: { extends: "bad", fields: { id: string } }`,
			field: "extends",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "bad")
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "fields", Message: "fields are required"}
	assert.Equal(t, "fields: fields are required", err.Error())
}
