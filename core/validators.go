package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	roleTag  = "approle"
	roleText = "must be one of: admin, teacher, parent"

	frequencyTag  = "frequency"
	frequencyText = "must be one of: daily, weekly, monthly"

	weekdayTag  = "weekday"
	weekdayText = "must be an Indonesian weekday name (Senin .. Minggu)"

	classTag  = "class"
	classText = "must be a known class (Kelas 1 .. Kelas 6)"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	// day names match what saving schedules store and compare against
	weekdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

	// ClassOptions is the fixed class list of the school; bulk import and
	// schedule forms only accept these values, casing included.
	ClassOptions = []string{"Kelas 1", "Kelas 2", "Kelas 3", "Kelas 4", "Kelas 5", "Kelas 6"}
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(roleTag, oneOfValidation("admin", "teacher", "parent"))
	RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(frequencyTag, oneOfValidation("daily", "weekly", "monthly"))
	RegisterCustomTranslation(validate, translator, frequencyTag, frequencyText)

	_ = validate.RegisterValidation(weekdayTag, oneOfValidation(weekdays...))
	RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(classTag, oneOfValidation(ClassOptions...))
	RegisterCustomTranslation(validate, translator, classTag, classText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func oneOfValidation(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if val == a {
				return true
			}
		}
		return false
	}
}

// IsKnownClass reports whether class is one of ClassOptions.
func IsKnownClass(class string) bool {
	for _, c := range ClassOptions {
		if class == c {
			return true
		}
	}
	return false
}
