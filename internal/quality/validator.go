package quality

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/marketpulse/internal/contracts"
)

// ErrInvalidBatch is returned when any record of a batch fails validation
var ErrInvalidBatch = errors.New("invalid record batch")

// Validator checks that every metric record is complete before it is persisted
// ⭐ SSOT: 저장 전 스키마 검증은 여기서만
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the "finite" rule registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// NaN and ±Inf are treated as missing values
	_ = v.RegisterValidation("finite", isFinite)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateRecord checks a single record
func (v *Validator) ValidateRecord(rec contracts.MetricRecord) error {
	if err := v.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("field %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// ValidateBatch checks every record; the first failure rejects the whole batch.
// An empty batch is valid.
func (v *Validator) ValidateBatch(records []contracts.MetricRecord) error {
	for i, rec := range records {
		if err := v.ValidateRecord(rec); err != nil {
			return fmt.Errorf("%w: record %d (%s): %v", ErrInvalidBatch, i, rec.Key(), err)
		}
	}
	return nil
}

func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}
