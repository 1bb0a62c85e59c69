package entities

const (
	CollectionUsers    = "users"
	CollectionProducts = "products"
)

// Campos do perfil.
const (
	FieldName       = "name"
	FieldLastName   = "lastName"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldAddress    = "address"
	FieldBirthDate  = "birthDate"
	FieldNationalID = "nationalId"
	FieldGender     = "gender"
	FieldMediaRef   = "mediaRef"
)

// Campos do produto. Name e MediaRef são compartilhados com o perfil.
const (
	FieldPrice       = "price"
	FieldQuantity    = "quantity"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldActive      = "active"
)

const (
	DefaultInitials  = "U"
	PlaceholderValue = "No especificado"
)

type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindMedia  FieldKind = "media"
)

type FieldSpec struct {
	Name    string
	Kind    FieldKind
	Default interface{}
}

// Schema descreve os campos reconhecidos de uma coleção, na ordem em que são exibidos.
type Schema struct {
	Collection string
	Fields     []FieldSpec
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, spec := range s.Fields {
		names[i] = spec.Name
	}
	return names
}

func (s Schema) Lookup(name string) (FieldSpec, bool) {
	for _, spec := range s.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

var ProfileSchema = Schema{
	Collection: CollectionUsers,
	Fields: []FieldSpec{
		{Name: FieldName, Kind: KindText, Default: ""},
		{Name: FieldLastName, Kind: KindText, Default: ""},
		{Name: FieldEmail, Kind: KindText, Default: ""},
		{Name: FieldPhone, Kind: KindText, Default: ""},
		{Name: FieldAddress, Kind: KindText, Default: ""},
		{Name: FieldBirthDate, Kind: KindText, Default: ""},
		{Name: FieldNationalID, Kind: KindText, Default: ""},
		{Name: FieldGender, Kind: KindText, Default: ""},
		{Name: FieldMediaRef, Kind: KindMedia, Default: ""},
	},
}

var ProductSchema = Schema{
	Collection: CollectionProducts,
	Fields: []FieldSpec{
		{Name: FieldName, Kind: KindText, Default: ""},
		{Name: FieldPrice, Kind: KindNumber, Default: float64(0)},
		{Name: FieldQuantity, Kind: KindNumber, Default: float64(0)},
		{Name: FieldCategory, Kind: KindText, Default: ""},
		{Name: FieldDescription, Kind: KindText, Default: ""},
		{Name: FieldMediaRef, Kind: KindMedia, Default: ""},
		{Name: FieldActive, Kind: KindBool, Default: true},
	},
}

// SchemaFor retorna o schema da coleção informada.
func SchemaFor(collection string) (Schema, bool) {
	switch collection {
	case CollectionUsers:
		return ProfileSchema, true
	case CollectionProducts:
		return ProductSchema, true
	}
	return Schema{}, false
}
