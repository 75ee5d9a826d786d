// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package analyze

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/567-labs/instructor-go/pkg/instructor"
)

// schemaJSONFor renders the JSON schema of a result type, embedded into
// analysis prompts so the model knows the exact shape to produce.
func schemaJSONFor[T any]() (string, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return "", fmt.Errorf("schema type is nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	schema, err := instructor.NewSchema(t)
	if err != nil {
		return "", err
	}

	defName := t.Name()
	for _, fn := range schema.Functions {
		if fn.Name != defName {
			continue
		}
		raw, err := json.MarshalIndent(fn.Parameters, "", "  ")
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	return "", fmt.Errorf("schema definition %q not found", defName)
}
