package validator

import "github.com/go-playground/validator/v10"

const (
	TagZipName    = "zip_name"
	TagUploadSize = "upload_size"
)

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewUploadValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn(TagZipName, zipNameValidator),
		},
		{
			Rule: registerFn(TagUploadSize, uploadSizeValidator),
		},
	}
}
