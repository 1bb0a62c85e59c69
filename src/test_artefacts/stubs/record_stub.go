package stubs

import (
	"time"

	"florencia/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

var categories = []string{"Limpieza", "Lácteos", "Golosinas", "Despensa", "Bebidas", "Congelados"}

type RecordStub struct {
	record entities.Record
}

func NewProfileStub() RecordStub {
	now := time.Now().UTC()

	record := entities.Record{
		Identity:   gofakeit.UUID(),
		Collection: entities.CollectionUsers,
		Fields: entities.Fields{
			entities.FieldName:       gofakeit.FirstName(),
			entities.FieldLastName:   gofakeit.LastName(),
			entities.FieldEmail:      gofakeit.Email(),
			entities.FieldPhone:      gofakeit.Phone(),
			entities.FieldAddress:    gofakeit.Street(),
			entities.FieldBirthDate:  gofakeit.Date().Format("02/01/2006"),
			entities.FieldNationalID: gofakeit.Numerify("########"),
			entities.FieldGender:     gofakeit.RandomString([]string{"Femenino", "Masculino", "Otro"}),
			entities.FieldMediaRef:   "",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	return RecordStub{record: record}
}

func NewProductStub() RecordStub {
	now := time.Now().UTC()

	record := entities.Record{
		Identity:   gofakeit.UUID(),
		Collection: entities.CollectionProducts,
		Fields: entities.Fields{
			entities.FieldName:        gofakeit.ProductName(),
			entities.FieldPrice:       gofakeit.Price(100, 5000),
			entities.FieldQuantity:    float64(gofakeit.Number(0, 200)),
			entities.FieldCategory:    gofakeit.RandomString(categories),
			entities.FieldDescription: gofakeit.Sentence(6),
			entities.FieldMediaRef:    "",
			entities.FieldActive:      true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	return RecordStub{record: record}
}

func (rs RecordStub) WithIdentity(identity string) RecordStub {
	rs.record.Identity = identity
	return rs
}

func (rs RecordStub) WithField(name string, value interface{}) RecordStub {
	fields := rs.record.Fields.Clone()
	fields[name] = value
	rs.record.Fields = fields
	return rs
}

// WithFields substitui todos os campos, útil para registros parciais.
func (rs RecordStub) WithFields(fields entities.Fields) RecordStub {
	rs.record.Fields = fields.Clone()
	return rs
}

func (rs RecordStub) WithCreatedAt(createdAt time.Time) RecordStub {
	rs.record.CreatedAt = createdAt
	return rs
}

func (rs RecordStub) Get() entities.Record {
	return rs.record.Clone()
}

// Ptr is a shortcut for merge sources.
func (rs RecordStub) Ptr() *entities.Record {
	record := rs.Get()
	return &record
}
