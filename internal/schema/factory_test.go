package schema

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/visibility"
)

func testFactory(opts ...FactoryOption) *Factory {
	opts = append([]FactoryOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewFactory(visibility.NewRegistry(), opts...)
}

func deviceDescription(t *testing.T) *visibility.Description {
	t.Helper()
	desc := visibility.NewDescription().
		Set("id", visibility.Field("string")).
		Set("owner", visibility.Field("string")).
		Set("token", visibility.Field("string"))
	require.NoError(t, visibility.NewDecorator(desc).
		Decorate("token", visibility.UserClassUser, visibility.Concealed).
		Err())
	return desc
}

func TestFactoryAssemble(t *testing.T) {
	var collections []string
	f := testFactory(WithModels(func(collection string) any {
		collections = append(collections, collection)
		return "model:" + collection
	}))

	typ := f.Assemble("device", "devices", deviceDescription(t))

	got, ok := f.Registry().Lookup("device")
	require.True(t, ok)
	assert.Same(t, typ, got)
	assert.Equal(t, "devices", typ.Collection)
	assert.Equal(t, "model:devices", typ.Model)
	assert.Equal(t, []string{"devices"}, collections)
	assert.True(t, typ.Info.IsConcealed("token", visibility.UserClassUser))
}

func TestFactoryExtendSharesCollection(t *testing.T) {
	f := testFactory(WithModels(func(collection string) any { return "model:" + collection }))
	base := f.Assemble("device", "devices", deviceDescription(t))
	require.NoError(t, base.Info.MarkComplex("owner", "person"))

	derived := visibility.NewDescription().Set("platform", visibility.Field("string"))
	require.NoError(t, visibility.NewDecorator(derived).
		Decorate("platform", visibility.UserClassUser, visibility.ReadOnly).
		Err())

	typ, err := f.Extend("iosDevice", "device", derived)
	require.NoError(t, err)

	assert.Equal(t, "devices", typ.Collection)
	assert.Equal(t, base.Model, typ.Model)
	assert.Equal(t, []string{"id", "owner", "platform", "token"}, typ.Description.Names())
	assert.True(t, typ.Info.IsConcealed("token", visibility.UserClassUser))
	assert.True(t, typ.Info.IsReadOnly("platform", visibility.UserClassUser))
	assert.True(t, typ.Info.IsComplex("owner"))
}

func TestFactoryExtendWithCollection(t *testing.T) {
	f := testFactory(WithModels(func(collection string) any { return "model:" + collection }))
	f.Assemble("device", "devices", deviceDescription(t))

	typ, err := f.ExtendWithCollection("iosDevice", "device", "iosDevices", visibility.NewDescription())
	require.NoError(t, err)

	assert.Equal(t, "iosDevices", typ.Collection)
	assert.Equal(t, "model:iosDevices", typ.Model)
	assert.True(t, typ.Info.IsConcealed("token", visibility.UserClassUser))
}

func TestFactoryExtendUnknownBase(t *testing.T) {
	f := testFactory()

	_, err := f.Extend("iosDevice", "device", visibility.NewDescription())
	require.ErrorIs(t, err, ErrUnknownBase)
	assert.Contains(t, err.Error(), "'device'")

	_, err = f.ExtendWithCollection("iosDevice", "device", "iosDevices", visibility.NewDescription())
	require.ErrorIs(t, err, ErrUnknownBase)

	_, ok := f.Registry().Lookup("iosDevice")
	assert.False(t, ok)
}

func TestFactoryBuildMarksComplex(t *testing.T) {
	f := testFactory()
	def, err := compileOne(t, `
		type: person: {
			collection: "people"
			fields: {
				id:      string
				apiKey:  string @visibility(user=concealed)
				parent?: _ @complex(person)
			}
		}
	`, "person")
	require.NoError(t, err)

	typ, err := f.Build(def)
	require.NoError(t, err)
	assert.True(t, typ.Info.IsComplex("parent"))
	assert.Equal(t, def.Source, typ.Schema)

	instance := record.Record{
		"id":     record.String("1"),
		"apiKey": record.String("secret"),
		"parent": record.Record{"id": record.String("0"), "apiKey": record.String("other")},
	}
	got, err := typ.Helper.Conceal(instance, visibility.Options{Clone: true})
	require.NoError(t, err)

	rec := got.(record.Record)
	assert.Equal(t, record.Bool(true), rec["apiKey"])
	assert.Equal(t, record.Bool(true), rec["parent"].(record.Record)["apiKey"])
	assert.Equal(t, record.String("other"), instance["parent"].(record.Record)["apiKey"])
}

func TestFactoryInfoOptions(t *testing.T) {
	f := testFactory(WithInfoOptions(visibility.WithDefaultUserClass("guest")))
	base := f.Assemble("device", "", deviceDescription(t))
	derived, err := f.Extend("iosDevice", "device", visibility.NewDescription())
	require.NoError(t, err)

	assert.Equal(t, visibility.UserClass("guest"), base.Info.DefaultUserClass())
	assert.Equal(t, visibility.UserClass("guest"), derived.Info.DefaultUserClass())
}

func TestFactoryAssembleModelFallsBackToName(t *testing.T) {
	f := testFactory(WithModels(func(collection string) any { return "model:" + collection }))
	typ := f.Assemble("device", "", deviceDescription(t))

	assert.Equal(t, "device", typ.CollectionName())
	assert.Equal(t, "model:device", typ.Model)
}
