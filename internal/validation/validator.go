package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/clinicbook/internal/models"
)

// booking form rule: ten digits, leading 6-9
var mobileRegex = regexp.MustCompile(`^[6-9][0-9]{9}$`)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	})

	v.RegisterValidation("phone_in", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, ok = NormalizePhone(value)
		return ok
	})

	v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return models.Status(value).Valid()
	})

	return &Validator{v: v}
}

// Struct validates s and reports the first failing field as a message
// suitable for a 400 response body.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	if fe.Tag() == "required" {
		return fmt.Errorf("%s is required", fe.Field())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

// NormalizePhone returns the ten-digit national number for an Indian mobile
// number given with or without +91, spaces or dashes.
func NormalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, "IN")
	if err != nil {
		return "", false
	}
	if num.GetCountryCode() != 91 {
		return "", false
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if !mobileRegex.MatchString(national) {
		return "", false
	}
	return national, true
}
