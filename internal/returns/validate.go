package returns

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"driver-punch-api-server/internal/models"
)

// ValidationError carries one message per offending field, keyed like "items[0].quantity".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid return form: " + strings.Join(parts, "; ")
}

type submission struct {
	Items []models.ReturnItem `json:"items" validate:"required,min=1,max=500,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// normalizeItems trims free-text fields and returns a copy.
func normalizeItems(items []models.ReturnItem) []models.ReturnItem {
	out := make([]models.ReturnItem, len(items))
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		it.Notes = strings.TrimSpace(it.Notes)
		out[i] = it
	}
	return out
}

func validateItems(items []models.ReturnItem) error {
	err := validate.Struct(submission{Items: items})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Namespace is "submission.items[0].name"; drop the struct name.
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		fields[key] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "items" {
			return "at least one item is required"
		}
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least one item is required"
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at most %s items are allowed", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// Total is the sum of item quantities. Validated items are bounded, so the sum
// cannot overflow.
func Total(items []models.ReturnItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}
