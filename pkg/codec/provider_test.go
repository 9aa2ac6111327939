package codec_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/codec"
)

// Ledger can not be mapped: its map key is not a string.
type Ledger struct {
	Totals map[int]string `doc:"totals"`
}

func TestProvider_RegisterIsIdempotent(t *testing.T) {
	provider := codec.NewProviderBuilder().
		RegisterValues(Circle{}, &Circle{}, Circle{}).
		Register(reflect.TypeFor[Circle](), reflect.TypeFor[*Circle]()).
		Build()

	assert.Equal(t, []reflect.Type{reflect.TypeFor[Circle]()}, provider.Registered())

	registry := newDefaultRegistry(provider)
	first, ok, err := provider.Lookup(reflect.TypeFor[Circle](), registry)
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := provider.Lookup(reflect.TypeFor[*Circle](), registry)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, first, second)
}

func TestProvider_LookupNotProvided(t *testing.T) {
	provider := codec.NewProviderBuilder().RegisterValues(Circle{}).Build()
	registry := newDefaultRegistry(provider)

	for _, typ := range []reflect.Type{
		reflect.TypeFor[Square](),
		reflect.TypeFor[*Square](),
		reflect.TypeFor[Shape](),
		reflect.TypeFor[string](),
		reflect.TypeFor[*int](),
		reflect.TypeFor[[]Circle](),
	} {
		c, ok, err := provider.Lookup(typ, registry)
		require.NoError(t, err, typ.String())
		assert.False(t, ok, typ.String())
		assert.Nil(t, c, typ.String())
	}

	c, ok, err := provider.Lookup(reflect.TypeFor[*Circle](), registry)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.IsType(t, &codec.EntityCodec{}, c)
}

func TestProvider_ResolveSkipsUnmappableTypes(t *testing.T) {
	provider := codec.NewProviderBuilder().
		RegisterValues(Ledger{}).
		Register(reflect.TypeFor[Shape]()).
		RegisterValues(Circle{}, Square{}, Drawing{}).
		Build()
	registry := newDefaultRegistry(provider)

	typ, err := registry.ResolveDiscriminator("github.com/ssargent/docmap/pkg/codec_test.Square")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[Square](), typ)

	// with no match the build failure is reported alongside the miss
	_, err = registry.ResolveDiscriminator("example.com/shapes.Hexagon")
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
	assert.Contains(t, err.Error(), "a mapped type could not be found: example.com/shapes.Hexagon")
	assert.Contains(t, err.Error(), "map key types must be strings")

	_, ok, err := provider.Lookup(reflect.TypeFor[Ledger](), registry)
	require.Error(t, err)
	assert.False(t, ok)
}
