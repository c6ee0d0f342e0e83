package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"todoapi/internal/core/domain"
)

const MessageValidationFailed = "Validation failed"

var (
	Validator  *validator.Validate
	Translator ut.Translator
)

func init() {
	Validator = validator.New(validator.WithRequiredStructEnabled())

	Validator.RegisterTagNameFunc(jsonFieldName)

	english := en.New()
	uni := ut.New(english, english)

	var found bool
	Translator, found = uni.GetTranslator("en")

	if !found {
		panic("translator en not found")
	}

	if err := en_translations.RegisterDefaultTranslations(Validator, Translator); err != nil {
		panic(err)
	}

	if err := addCustomTranslations(); err != nil {
		panic(err)
	}
}

func addCustomTranslations() error {
	return Validator.RegisterTranslation("required", Translator, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is required", true)
	}, translateField("required"))
}

// translateField falls back to the validator's own message when the
// translation is missing.
func translateField(tag string) validator.TranslationFunc {
	return func(ut ut.Translator, fe validator.FieldError) string {
		t, err := ut.T(tag, fe.Field())

		if err != nil {
			return fe.Error()
		}

		return t
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]

	if name == "-" {
		return ""
	}

	if name == "" {
		return field.Name
	}

	return name
}

// FormatValidationErrors maps each failing field to its translated message.
func FormatValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors

	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			fields[fieldError.Field()] = fieldError.Translate(Translator)
		}
	}

	return fields
}

// ValidateStruct returns a ValidationFailed domain error when v breaks any
// of its validate tags.
func ValidateStruct(v any) error {
	err := Validator.Struct(v)

	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError

	if errors.As(err, &invalid) {
		return fmt.Errorf("validate %T: %w", v, err)
	}

	return domain.NewValidationError(MessageValidationFailed, FormatValidationErrors(err))
}

// DecodeError turns a JSON binding failure into a ValidationFailed error
// naming the offending field when the decoder exposes one.
func DecodeError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)

	fields := make(map[string]string)

	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields[typeErr.Field] = fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.String())
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		fields["body"] = "malformed JSON request body"
	case errors.Is(err, io.EOF):
		fields["body"] = "request body is required"
	default:
		fields["body"] = "malformed JSON request body"
	}

	return domain.NewValidationError(MessageValidationFailed, fields)
}

// InvalidID reports a path id that is not a positive integer.
func InvalidID() error {
	return domain.NewValidationError(MessageValidationFailed, map[string]string{
		"id": "id must be a positive integer",
	})
}
