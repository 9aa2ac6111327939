// Package codec maps Go structs to and from documents without hand-written
// serialization code.
//
// A ClassModel describes one mapped type: its fields in declaration order,
// the identifier field and the discriminator used to recover the concrete
// type of polymorphic values. Each FieldModel lazily resolves a Codec by
// linearizing its type into a container chain and wrapping the leaf codec
// found in the Registry:
//
//	[]map[string]float64  ->  list -> map -> leaf(float64)
//
// # Mapping
//
// Fields are configured with the doc struct tag (falling back to json):
//
//	type Post struct {
//	    ID     ksuid.KSUID         `doc:"_id"`
//	    Title  string              `doc:"title"`
//	    Tags   map[string]struct{} `doc:"tags,empties"`
//	    Author *Person             `doc:"author,nulls"`
//	    Body   Content             `doc:"body,nodiscriminator"`
//	    draft  bool
//	}
//
// A field declared ID, or mapped "_id", is the identifier and is always
// written as "_id". Unexported fields are never mapped and "-" excludes a
// field. Maps must have string keys; map[K]struct{} is a set.
//
// # Polymorphism
//
// Entities are written with a "_t" entry holding their discriminator
// (package path and type name by default). Decoding peeks for "_t" with a
// single reader mark, rewinds and dispatches to the codec of the named type,
// so a codec for a registered interface decodes every registered
// implementation:
//
//	provider := codec.NewProviderBuilder().
//	    Register(reflect.TypeFor[Shape](), reflect.TypeFor[Circle](), reflect.TypeFor[Square]()).
//	    Build()
//	registry := primitive.NewDefaultRegistry(provider)
//
// # Generics
//
// An interface-typed field tagged param=T is left open in its ClassModel.
// Fields referencing the model bind the parameter with bind=T:type or
// FieldModel.BindType, and get a specialized copy of the model in which the
// bound fields have the concrete type. The template model is never changed.
//
// # Thread Safety
//
// Encoding and decoding are safe for concurrent use once every model has
// been configured. Setters on ClassModel and FieldModel are not; use
// ProviderBuilder.Configure to adjust models before first use.
package codec
