package visibility

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/record"
)

// personDescription mirrors the person fixture: id, name, apiKey, properties.special.
func personDescription() *Description {
	return NewDescription().
		Set("id", Field("string")).
		Set("name", Field("string")).
		Set("apiKey", Field("string")).
		Set("properties", Nested(NewDescription().Set("special", Field("string"))))
}

func personRecord(id, name, apiKey, special string) record.Record {
	return record.Record{
		"id":         record.String(id),
		"name":       record.String(name),
		"apiKey":     record.String(apiKey),
		"properties": record.Record{"special": record.String(special)},
	}
}

// definePerson registers "person" with parent/parents marked complex as person.
func definePerson(t *testing.T, reg *Registry, decorate func(*Decorator)) *Type {
	t.Helper()
	desc := personDescription()
	desc.Set("parent", Field("person")).Set("parents", ArrayOf(Field("person")))
	if decorate != nil {
		d := NewDecorator(desc)
		decorate(d)
		require.NoError(t, d.Err())
	}
	typ := reg.Define("person", desc, TypeOptions{Collection: "people"})
	require.NoError(t, typ.Info.MarkComplex("parent", "person"))
	require.NoError(t, typ.Info.MarkComplex("parents", "person"))
	return typ
}

func asRecord(t *testing.T, v record.Value) record.Record {
	t.Helper()
	r, ok := v.(record.Record)
	require.True(t, ok, "expected record, got %T", v)
	return r
}
