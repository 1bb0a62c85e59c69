package comparer

import (
	"encoding/json"
	"reflect"

	"florencia/src/domain/entities"

	"github.com/google/go-cmp/cmp"
)

// FieldsAsJSON compara entities.Fields pelo conteúdo JSON, então 3 (int) e 3.0 (float64) são iguais
func FieldsAsJSON() cmp.Option {
	return cmp.Comparer(func(x, y entities.Fields) bool {
		if len(x) == 0 && len(y) == 0 {
			return true
		}

		xBytes, err := json.Marshal(x)
		if err != nil {
			return false
		}
		yBytes, err := json.Marshal(y)
		if err != nil {
			return false
		}

		var xObj, yObj interface{}
		if err := json.Unmarshal(xBytes, &xObj); err != nil {
			return false
		}
		if err := json.Unmarshal(yBytes, &yObj); err != nil {
			return false
		}

		return reflect.DeepEqual(xObj, yObj)
	})
}
