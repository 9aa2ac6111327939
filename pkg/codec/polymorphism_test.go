package codec_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

func TestPolymorphism_InterfaceRoot(t *testing.T) {
	registry := newShapeRegistry(t)
	ec := entityCodec(t, registry, Drawing{})

	original := &Drawing{
		Name:   "plan",
		Shapes: []Shape{&Circle{Radius: 1}, &Square{Side: 2}},
		Main:   &Square{Side: 3},
	}
	raw, err := ec.Marshal(original)
	require.NoError(t, err)

	main := lookupDoc(t, raw, "main")
	discriminator, ok := main.Lookup("_t")
	require.True(t, ok)
	s, _ := discriminator.StringValue()
	assert.Equal(t, "github.com/ssargent/docmap/pkg/codec_test.Square", s)

	decoded, err := ec.Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPolymorphism_DecodeThroughInterfaceCodec(t *testing.T) {
	registry := newShapeRegistry(t)
	circles := entityCodec(t, registry, Circle{})
	shapes, err := registry.Lookup(reflect.TypeFor[Shape]())
	require.NoError(t, err)

	raw, err := circles.Marshal(&Circle{Radius: 2})
	require.NoError(t, err)

	v, err := shapes.(*codec.EntityCodec).Unmarshal(raw)
	require.NoError(t, err)
	require.IsType(t, &Circle{}, v)
	assert.InDelta(t, 12.566, v.(Shape).Area(), 0.001)
}

func TestPolymorphism_UnknownDiscriminator(t *testing.T) {
	registry := newShapeRegistry(t)
	ec := entityCodec(t, registry, Drawing{})

	w := document.NewBinaryWriter()
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("main"))
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("side"))
	require.NoError(t, w.WriteDouble(1))
	require.NoError(t, w.WriteName("_t"))
	require.NoError(t, w.WriteString("example.com/shapes.Hexagon"))
	require.NoError(t, w.WriteEndDocument())
	require.NoError(t, w.WriteEndDocument())
	raw, err := w.Raw()
	require.NoError(t, err)

	_, err = ec.Unmarshal(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
	assert.Contains(t, err.Error(), "a mapped type could not be found: example.com/shapes.Hexagon")
}

func TestPolymorphism_LateDiscriminator(t *testing.T) {
	registry := newShapeRegistry(t)
	ec := entityCodec(t, registry, Drawing{})

	w := document.NewBinaryWriter()
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("main"))
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("side"))
	require.NoError(t, w.WriteDouble(3))
	require.NoError(t, w.WriteName("junk"))
	require.NoError(t, w.WriteStartArray())
	require.NoError(t, w.WriteInt32(1))
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("_t"))
	require.NoError(t, w.WriteString("nested, not a discriminator"))
	require.NoError(t, w.WriteEndDocument())
	require.NoError(t, w.WriteEndArray())
	require.NoError(t, w.WriteName("_t"))
	require.NoError(t, w.WriteString("github.com/ssargent/docmap/pkg/codec_test.Square"))
	require.NoError(t, w.WriteEndDocument())
	require.NoError(t, w.WriteName("name"))
	require.NoError(t, w.WriteString("after"))
	require.NoError(t, w.WriteEndDocument())
	raw, err := w.Raw()
	require.NoError(t, err)

	decoded, err := ec.Unmarshal(raw)
	require.NoError(t, err)
	drawing, ok := decoded.(*Drawing)
	require.True(t, ok, "got %T", decoded)
	assert.Equal(t, &Square{Side: 3}, drawing.Main)
	assert.Equal(t, "after", drawing.Name)
}

func TestPolymorphism_InterfaceWithoutDiscriminator(t *testing.T) {
	registry := newShapeRegistry(t)
	ec := entityCodec(t, registry, Drawing{})

	w := document.NewBinaryWriter()
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("main"))
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("side"))
	require.NoError(t, w.WriteDouble(1))
	require.NoError(t, w.WriteEndDocument())
	require.NoError(t, w.WriteEndDocument())
	raw, err := w.Raw()
	require.NoError(t, err)

	_, err = ec.Unmarshal(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
	assert.Contains(t, err.Error(), "no zero argument constructor was found for the type codec_test.Shape")
}

func TestPolymorphism_DiscriminatorSuppression(t *testing.T) {
	registry, _ := newRegistry(t, Outer{}, Inner{})
	ec := entityCodec(t, registry, Outer{})

	original := &Outer{
		Plain: Inner{Value: "p"},
		Quiet: Inner{Value: "q"},
		Loud:  &Inner{Value: "l"},
	}
	raw, err := ec.Marshal(original)
	require.NoError(t, err)

	testCases := []struct {
		field string
		want  bool
	}{
		{field: "plain", want: true},
		{field: "quiet", want: false},
		{field: "loud", want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			_, has := lookupDoc(t, raw, tc.field).Lookup("_t")
			assert.Equal(t, tc.want, has)
		})
	}

	decoded, err := ec.Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPolymorphism_ModelLevelSuppression(t *testing.T) {
	provider := codec.NewProviderBuilder().
		RegisterValues(Outer{}).
		Configure(reflect.TypeFor[Inner](), func(m *codec.ClassModel) error {
			m.SetUseDiscriminator(false)
			return nil
		}).
		Build()
	ec := entityCodec(t, newDefaultRegistry(provider), Outer{})

	raw, err := ec.Marshal(&Outer{Loud: &Inner{Value: "l"}})
	require.NoError(t, err)

	_, has := raw.Lookup("_t")
	assert.True(t, has)
	_, has = lookupDoc(t, raw, "plain").Lookup("_t")
	assert.False(t, has)
	_, has = lookupDoc(t, raw, "loud").Lookup("_t")
	assert.True(t, has, "the field override wins over the model")
}

func TestPolymorphism_CustomDiscriminator(t *testing.T) {
	provider := codec.NewProviderBuilder().
		Register(reflect.TypeFor[Shape]()).
		RegisterValues(Square{}).
		Configure(reflect.TypeFor[Circle](), func(m *codec.ClassModel) error {
			m.SetDiscriminator("circle")
			return nil
		}).
		Build()
	registry := newDefaultRegistry(provider)

	circles := entityCodec(t, registry, Circle{})
	raw, err := circles.Marshal(&Circle{Radius: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"_t": "circle", "radius": 1}`, raw.String())

	resolved, err := registry.ResolveDiscriminator("circle")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[Circle](), resolved)

	shapes, err := registry.Lookup(reflect.TypeFor[Shape]())
	require.NoError(t, err)
	v, err := shapes.(*codec.EntityCodec).Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, &Circle{Radius: 1}, v)
}

func TestPolymorphism_AnyField(t *testing.T) {
	type Envelope struct {
		Payload any `doc:"payload"`
	}
	provider := codec.NewProviderBuilder().
		RegisterValues(Envelope{}, Circle{}).
		Build()
	ec := entityCodec(t, newDefaultRegistry(provider), Envelope{})

	testCases := []struct {
		name    string
		payload any
	}{
		{name: "string", payload: "hello"},
		{name: "int64", payload: int64(9)},
		{name: "entity", payload: &Circle{Radius: 4}},
		{name: "list", payload: []any{"a", int32(1), true}},
		{name: "map", payload: map[string]any{"k": 1.5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ec.Marshal(&Envelope{Payload: tc.payload})
			require.NoError(t, err)
			decoded, err := ec.Unmarshal(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.payload, decoded.(*Envelope).Payload)
		})
	}
}
