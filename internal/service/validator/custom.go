package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const ArchiveExtension = ".zip"

// MaxUploadBytes is the largest archive accepted for migration.
const MaxUploadBytes = 100 * 1024 * 1024

func zipNameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	// case sensitive: "orders.ZIP" is rejected
	return strings.HasSuffix(val, ArchiveExtension)
}

func uploadSizeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(int64)
	if !ok {
		return false
	}
	return val >= 0 && val <= MaxUploadBytes
}
