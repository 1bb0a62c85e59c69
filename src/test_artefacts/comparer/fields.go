package comparer

import (
	"florencia/src/domain/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// IgnoreRecordTimestamps ignora CreatedAt/UpdatedAt, que são definidos pelo store.
func IgnoreRecordTimestamps() cmp.Option {
	return IgnoreFieldsFor[entities.Record]("CreatedAt", "UpdatedAt")
}
