package codec_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

func TestIdentifier_EnsureIsIdempotent(t *testing.T) {
	calls := 0
	provider := codec.NewProviderBuilder().
		RegisterValues(Article{}).
		IDGenerator(codec.IDGeneratorFunc(func() any {
			calls++
			return ksuid.New()
		})).
		Build()
	ec := entityCodec(t, newDefaultRegistry(provider), Article{})

	a := &Article{Title: "t"}
	has, err := ec.HasIdentifier(a)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, ec.EnsureIdentifier(a))
	first := a.ID
	assert.False(t, first.IsNil())

	has, err = ec.HasIdentifier(a)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, ec.EnsureIdentifier(a))
	assert.Equal(t, first, a.ID)
	assert.Equal(t, 1, calls)
}

func TestIdentifier_StringFields(t *testing.T) {
	testCases := []struct {
		name  string
		gen   codec.IDGenerator
		parse func(string) error
	}{
		{
			name:  "ksuid",
			gen:   codec.KSUIDGenerator{},
			parse: func(s string) error { _, err := ksuid.Parse(s); return err },
		},
		{
			name:  "uuid",
			gen:   codec.UUIDGenerator{},
			parse: func(s string) error { _, err := uuid.Parse(s); return err },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := codec.NewProviderBuilder().RegisterValues(Person{}).IDGenerator(tc.gen).Build()
			ec := entityCodec(t, newDefaultRegistry(provider), Person{})

			p := &Person{Name: "Ada"}
			require.NoError(t, ec.EnsureIdentifier(p))
			assert.NotEmpty(t, p.ID)
			assert.NoError(t, tc.parse(p.ID))
		})
	}
}

func TestIdentifier_Value(t *testing.T) {
	registry, _ := newRegistry(t, Article{}, Person{})

	t.Run("binary identifier", func(t *testing.T) {
		ec := entityCodec(t, registry, Article{})
		id := ksuidFixture(t)

		value, err := ec.IdentifierValue(&Article{Base: Base{ID: id}})
		require.NoError(t, err)
		assert.Equal(t, document.TypeBinary, value.Type)

		bare, err := ec.EncodeIdentifier(id)
		require.NoError(t, err)
		assert.True(t, value.Equal(bare))
	})

	t.Run("string identifier", func(t *testing.T) {
		ec := entityCodec(t, registry, Person{})

		value, err := ec.IdentifierValue(&Person{ID: "p-1"})
		require.NoError(t, err)
		s, ok := value.StringValue()
		require.True(t, ok)
		assert.Equal(t, "p-1", s)

		id := ksuid.New()
		bare, err := ec.EncodeIdentifier(id)
		require.NoError(t, err)
		s, ok = bare.StringValue()
		require.True(t, ok)
		assert.Equal(t, id.String(), s)
	})
}

func TestIdentifier_Missing(t *testing.T) {
	registry, _ := newRegistry(t, Scenario{})
	ec := entityCodec(t, registry, Scenario{})

	_, err := ec.HasIdentifier(&Scenario{})
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
	assert.True(t, errors.Is(ec.EnsureIdentifier(&Scenario{}), codec.ErrConfiguration))
	_, err = ec.IdentifierValue(&Scenario{})
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
}

func TestIdentifier_Generators(t *testing.T) {
	gen, err := codec.NewIDGenerator("uuid")
	require.NoError(t, err)
	assert.IsType(t, uuid.UUID{}, gen.Generate())

	gen, err = codec.NewIDGenerator("")
	require.NoError(t, err)
	assert.IsType(t, ksuid.KSUID{}, gen.Generate())

	_, err = codec.NewIDGenerator("snowflake")
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
}
