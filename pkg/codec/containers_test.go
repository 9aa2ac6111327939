package codec_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/codec"
)

func TestExtractContainers(t *testing.T) {
	testCases := []struct {
		name string
		typ  reflect.Type
		want []string
	}{
		{
			name: "scalar",
			typ:  reflect.TypeFor[int32](),
			want: []string{"leaf(int32)"},
		},
		{
			name: "nested lists and maps",
			typ:  reflect.TypeFor[[][]map[string]float64](),
			want: []string{
				"list([][]map[string]float64)",
				"list([]map[string]float64)",
				"map(map[string]float64)",
				"leaf(float64)",
			},
		},
		{
			name: "set",
			typ:  reflect.TypeFor[map[string]struct{}](),
			want: []string{"set(map[string]struct {})", "leaf(string)"},
		},
		{
			name: "set with non-string keys",
			typ:  reflect.TypeFor[[]map[int64]struct{}](),
			want: []string{"list([]map[int64]struct {})", "set(map[int64]struct {})", "leaf(int64)"},
		},
		{
			name: "byte slices are leaves",
			typ:  reflect.TypeFor[map[string][]byte](),
			want: []string{"map(map[string][]uint8)", "leaf([]uint8)"},
		},
		{
			name: "fixed arrays",
			typ:  reflect.TypeFor[[3][]string](),
			want: []string{"list([3][]string)", "list([]string)", "leaf(string)"},
		},
		{
			name: "entities",
			typ:  reflect.TypeFor[[]*Person](),
			want: []string{"list([]*codec_test.Person)", "leaf(*codec_test.Person)"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chain, err := codec.ExtractContainers(tc.typ)
			require.NoError(t, err)
			var got []string
			for _, c := range chain {
				got = append(got, c.String())
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, codec.ContainerLeaf, chain[len(chain)-1].Kind)
		})
	}
}

func TestExtractContainers_MapKeys(t *testing.T) {
	_, err := codec.ExtractContainers(reflect.TypeFor[[]map[int]string]())
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrConfiguration))
	assert.Contains(t, err.Error(), "map key types must be strings, found int instead")

	type Key string
	chain, err := codec.ExtractContainers(reflect.TypeFor[map[Key]bool]())
	require.NoError(t, err)
	assert.Equal(t, codec.ContainerMap, chain[0].Kind)
}
