package validation

import (
	"fmt"

	dErrors "sapp/pkg/domain-errors"
)

// Profile field length limits applied before a profile is issued into a credential.
const (
	MaxDisplayNameLength  = 200
	MaxEmailLength        = 255
	MaxOrganizationLength = 200
	MaxDepartmentLength   = 200
	MaxTitleLength        = 200
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
