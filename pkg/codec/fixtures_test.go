package codec_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
	"github.com/ssargent/docmap/pkg/primitive"
)

type Scenario struct {
	Map  map[string]float64 `doc:"map"`
	List []int32            `doc:"list"`
}

type Nested struct {
	Grid  [][]map[string][]int32 `doc:"grid"`
	Sets  []map[string]struct{}  `doc:"sets"`
	Fixed [3]string              `doc:"fixed"`
	Blob  []byte                 `doc:"blob"`
}

type BadKey struct {
	Lookup map[int]string `doc:"lookup"`
}

type Person struct {
	ID    string `doc:"id"`
	Name  string `doc:"name"`
	Email string `doc:"email"`
}

type Takeover struct {
	ID  string
	Key string `doc:"_id"`
}

type Inner struct {
	Value string `doc:"value"`
}

type Outer struct {
	Plain Inner  `doc:"plain"`
	Quiet Inner  `doc:"quiet,nodiscriminator"`
	Loud  *Inner `doc:"loud,discriminator"`
}

type Policy struct {
	Note        *string           `doc:"note"`
	NullNote    *string           `doc:"nullNote,nulls"`
	Tags        []string          `doc:"tags"`
	EmptyTags   []string          `doc:"emptyTags,empties"`
	Labels      map[string]string `doc:"labels"`
	EmptyLabels map[string]string `doc:"emptyLabels,empties"`
}

type Article struct {
	Base
	Title   string            `doc:"title"`
	Views   uint32            `doc:"views"`
	Score   float32           `doc:"score"`
	Draft   bool              `doc:"draft"`
	Ignored map[int]bool      `doc:"-"`
	Meta    map[string]string `json:"meta,omitempty"`
	secret  string
}

type Base struct {
	ID      ksuid.KSUID
	Created time.Time `doc:"created"`
}

type Node struct {
	Value int32 `doc:"value"`
	Next  *Node `doc:"next"`
}

type Box struct {
	Label string `doc:"label"`
	Value any    `doc:"value,param=T"`
}

type Shelf struct {
	Ints  Box `doc:"ints,bind=T:int32"`
	Names Box `doc:"names,bind=T:[]string"`
	Loose Box `doc:"loose"`
}

type Shape interface {
	Area() float64
}

type Circle struct {
	Radius float64 `doc:"radius"`
}

func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type Square struct {
	Side float64 `doc:"side"`
}

func (s *Square) Area() float64 { return s.Side * s.Side }

type Drawing struct {
	Name   string  `doc:"name"`
	Shapes []Shape `doc:"shapes"`
	Main   Shape   `doc:"main"`
}

// newRegistry registers samples with a fresh provider.
func newRegistry(t testing.TB, samples ...any) (*codec.CodecRegistry, *codec.EntityProvider) {
	t.Helper()
	provider := codec.NewProviderBuilder().RegisterValues(samples...).Build()
	return primitive.NewDefaultRegistry(provider), provider
}

func entityCodec(t testing.TB, registry codec.Registry, sample any) *codec.EntityCodec {
	t.Helper()
	c, err := registry.Lookup(reflect.TypeOf(sample))
	require.NoError(t, err)
	ec, ok := c.(*codec.EntityCodec)
	require.True(t, ok, "expected an entity codec, got %T", c)
	return ec
}

func lookupDoc(t *testing.T, raw document.Raw, name string) document.Raw {
	t.Helper()
	v, ok := raw.Lookup(name)
	require.True(t, ok, "missing %q in %s", name, raw)
	doc, ok := v.Document()
	require.True(t, ok, "%q is a %s", name, v.Type)
	return doc
}

func newDefaultRegistry(providers ...codec.Provider) *codec.CodecRegistry {
	return primitive.NewDefaultRegistry(providers...)
}

// newShapeRegistry maps the Shape interface and its implementations.
func newShapeRegistry(t *testing.T, extra ...any) *codec.CodecRegistry {
	t.Helper()
	provider := codec.NewProviderBuilder().
		Register(reflect.TypeFor[Shape]()).
		RegisterValues(Circle{}, Square{}, Drawing{}).
		RegisterValues(extra...).
		Build()
	return primitive.NewDefaultRegistry(provider)
}

func ksuidFixture(t testing.TB) ksuid.KSUID {
	t.Helper()
	id, err := ksuid.NewRandomWithTime(time.UnixMilli(1_700_000_000_000))
	require.NoError(t, err)
	return id
}
