package visibility

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefineAndLookup(t *testing.T) {
	reg := NewRegistry()
	typ := reg.Define("person", personDescription(), TypeOptions{Collection: "people", Model: "handle"})

	got, ok := reg.Lookup("person")
	require.True(t, ok)
	assert.Same(t, typ, got)
	assert.Equal(t, "people", got.CollectionName())
	assert.Equal(t, "handle", got.Model)
	assert.Same(t, got.Info, got.Helper.Info())
	assert.Same(t, got.Description, got.Info.Description())

	_, ok = reg.Lookup("animal")
	assert.False(t, ok)
}

func TestNewTypeDoesNotRegister(t *testing.T) {
	reg := NewRegistry()
	typ := NewType("person", personDescription(), reg, TypeOptions{})

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, "person", typ.CollectionName())
}

func TestRegistryLastWriteWins(t *testing.T) {
	reg := NewRegistry()
	first := reg.Define("person", personDescription(), TypeOptions{})
	second := reg.Define("person", personDescription(), TypeOptions{Collection: "persons"})

	got, ok := reg.Lookup("person")
	require.True(t, ok)
	assert.NotSame(t, first, got)
	assert.Same(t, second, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"person", "animal", "company"} {
		reg.Define(name, NewDescription(), TypeOptions{})
	}
	assert.Equal(t, []string{"animal", "company", "person"}, reg.Names())
}

func TestNilRegistryLookup(t *testing.T) {
	var reg *Registry
	_, ok := reg.Lookup("person")
	assert.False(t, ok)
}

func TestRegistryConcurrentRegistrationAndReads(t *testing.T) {
	reg := NewRegistry()
	person := definePerson(t, reg, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Define(fmt.Sprintf("type-%d", i), NewDescription(), TypeOptions{})
		}()
		go func() {
			defer wg.Done()
			_, err := person.Helper.OmitHidden(personRecord("1", "n", "k", "s"), Options{Clone: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, reg.Len())
}

func TestDescriptionInherit(t *testing.T) {
	base := personDescription()
	require.NoError(t, NewDecorator(base).
		Decorate("apiKey", UserClassUser, Concealed).
		Decorate("name", UserClassUser, ReadOnly).
		DecorateComposite("fullName", UserClassUser, ReadOnly).
		DecorateRoot("guest", Hidden).
		Err())

	derived := NewDescription().
		Set("name", Field("string")).
		Set("level", Field("int"))
	require.NoError(t, NewDecorator(derived).Decorate("level", UserClassUser, ReadOnly).Err())

	derived.Inherit(base)

	assert.Equal(t, []string{"apiKey", "fullName", "id", "level", "name", "properties"}, derived.Names())
	assert.True(t, derived.IsComposite("fullName"))
	assert.True(t, derived.Attributes().Get(Path{"apiKey"}, UserClassUser).Has(Concealed))
	assert.True(t, derived.Attributes().Get(Path{RootProperty}, "guest").Has(Hidden))
	// Redeclared properties keep the derived decoration (none here).
	assert.Equal(t, 0, derived.Attributes().Get(Path{"name"}, UserClassUser).Len())
	assert.True(t, derived.Attributes().Get(Path{"level"}, UserClassUser).Has(ReadOnly))

	// The base is not modified.
	_, ok := base.Property("level")
	assert.False(t, ok)
}

func TestDescriptionInheritCopiesStructure(t *testing.T) {
	base := personDescription().
		Set("addresses", ArrayOf(Undefined()))

	derived := NewDescription()
	derived.Inherit(base)
	require.NoError(t, NewDecorator(derived).
		DecorateDeep([]string{"properties", "extra"}, UserClassUser, Hidden).
		DecorateDeep([]string{"addresses", "street"}, UserClassUser, Concealed).
		Err())

	props, _ := base.Property("properties")
	_, ok := props.Nested.Property("extra")
	assert.False(t, ok)
	addresses, _ := base.Property("addresses")
	assert.Equal(t, KindUndefined, addresses.Elem.Kind)

	derivedProps, _ := derived.Property("properties")
	_, ok = derivedProps.Nested.Property("extra")
	assert.True(t, ok)
	_, ok = derivedProps.Nested.Property("special")
	assert.True(t, ok)
	assert.False(t, base.Attributes().Has(Path{"properties", "extra"}))
}

func TestDescriptionInheritKeepsOwnRoot(t *testing.T) {
	base := personDescription()
	require.NoError(t, NewDecorator(base).DecorateRoot("guest", Hidden).Err())

	derived := NewDescription()
	require.NoError(t, NewDecorator(derived).DecorateRoot(UserClassUser, ReadOnly).Err())
	derived.Inherit(base)

	assert.Equal(t, 0, derived.Attributes().Get(Path{RootProperty}, "guest").Len())
	assert.True(t, derived.Attributes().Get(Path{RootProperty}, UserClassUser).Has(ReadOnly))
}

func TestPropertyKindString(t *testing.T) {
	assert.Equal(t, "field", KindField.String())
	assert.Equal(t, "shorthand", KindShorthand.String())
	assert.Equal(t, "nested", KindNested.String())
	assert.Equal(t, "array", KindArray.String())
	assert.Equal(t, "undefined", KindUndefined.String())
}
