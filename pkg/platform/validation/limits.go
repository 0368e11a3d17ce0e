package validation

import (
	"fmt"
	"unicode/utf8"

	dErrors "tiergate/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (256 KB).
	// Proposed actions carry free-text descriptions and a context bag.
	MaxBodySize = 256 * 1024
)

// Slice element count limits
const (
	// MaxApprovers is the maximum number of approvers on one override request.
	MaxApprovers = 25

	// MaxContextKeys is the maximum number of keys in a proposed action context bag.
	MaxContextKeys = 100
)

// String element length limits
const (
	// MaxKindLength is the maximum length of an action kind.
	MaxKindLength = 100

	// MaxDescriptionLength is the maximum length of an action description.
	MaxDescriptionLength = 10000

	// MaxJustificationLength is the maximum length of an override justification.
	MaxJustificationLength = 5000

	// MaxApproverLength is the maximum length of one approver identity.
	MaxApproverLength = 255
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length in runes.
func CheckStringLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if err := CheckStringLength(fieldName, v, max); err != nil {
			return err
		}
	}
	return nil
}
