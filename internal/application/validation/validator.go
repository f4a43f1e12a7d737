// Package validation holds the shared request validator for commands and queries.
// Field names in messages follow the json tags so API clients see their own keys.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

// custom tags
const (
	notBlankTag       = "notblank"
	dateTag           = "date"
	rewardCategoryTag = "reward_category"
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(dateTag, isDate)
	_ = validate.RegisterValidation(rewardCategoryTag, isRewardCategory)

	registerCustomTranslations(notBlankTag, dateTag, rewardCategoryTag)
}

// registerCustomTranslations hooks messages for the custom tags. The register
// func is a no-op because the default translations are already installed.
func registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case dateTag:
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case rewardCategoryTag:
		return fe.Field() + " must be a known reward category"
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func isDate(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := timeutil.ParseDate(s)
	return err == nil
}

func isRewardCategory(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && reward.Category(s).IsValid()
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLIC API
// ══════════════════════════════════════════════════════════════════════════════

// Struct validates v. On failure it returns a shared.DomainError of kind
// ErrValidation wrapping validator.ValidationErrors.
func Struct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return shared.WrapError("validation", op, shared.ErrValidation, err.Error(), err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	return shared.WrapError("validation", op, shared.ErrValidation, strings.Join(msgs, "; "), verrs)
}

// Fields maps json field names to readable messages. It returns nil when err
// carries no field-level errors.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}
