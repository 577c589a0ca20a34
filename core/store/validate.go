// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package store

import (
	"strings"

	"github.com/relabs-tech/fashionera/core"
)

// Field is a named draft value for Required
type Field struct {
	Name  string
	Value string
}

// Required returns a ValidationError listing every field which is empty or
// whitespace only, or nil if all fields are set. This is a presence check,
// nothing more.
func Required(fields ...Field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return core.NewFailure(core.KindValidation, "required: %s", strings.Join(missing, ", "))
}
