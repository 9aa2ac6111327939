package primitive_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/document"
	"github.com/ssargent/docmap/pkg/primitive"
)

func TestIdentifierCandidates(t *testing.T) {
	registry := primitive.NewDefaultRegistry()

	t.Run("ksuid", func(t *testing.T) {
		id := ksuid.New()
		candidates, err := primitive.IdentifierCandidates(registry, id.String())
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, document.TypeBinary, candidates[0].Type)
		assert.Equal(t, document.TypeString, candidates[1].Type)
	})

	t.Run("uuid", func(t *testing.T) {
		candidates, err := primitive.IdentifierCandidates(registry, uuid.NewString())
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, document.TypeBinary, candidates[0].Type)
	})

	t.Run("plain string", func(t *testing.T) {
		candidates, err := primitive.IdentifierCandidates(registry, "acct-1")
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		s, ok := candidates[0].StringValue()
		require.True(t, ok)
		assert.Equal(t, "acct-1", s)
	})
}

func TestReadPlain(t *testing.T) {
	id := ksuid.New()
	w := document.NewBinaryWriter()
	require.NoError(t, w.WriteStartDocument())
	require.NoError(t, w.WriteName("_id"))
	require.NoError(t, w.WriteBinary(document.BinaryKSUID, id.Bytes()))
	require.NoError(t, w.WriteName("n"))
	require.NoError(t, w.WriteInt32(3))
	require.NoError(t, w.WriteName("list"))
	require.NoError(t, w.WriteStartArray())
	require.NoError(t, w.WriteBoolean(true))
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.WriteEndArray())
	require.NoError(t, w.WriteName("at"))
	require.NoError(t, w.WriteDateTime(1000))
	require.NoError(t, w.WriteEndDocument())
	raw, err := w.Raw()
	require.NoError(t, err)

	v, err := primitive.ReadPlain(document.NewBinaryReader(raw))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"_id":  id.String(),
		"n":    int32(3),
		"list": []any{true, nil},
		"at":   time.Unix(1, 0).UTC(),
	}, v)
}

