package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yi-nology/docvault/pkg/storage"
)

// ErrInvalid wraps every error returned by Struct.
var ErrInvalid = errors.New("invalid request")

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("storage_kind", func(fl validator.FieldLevel) bool {
			_, ok := storage.ParseKind(fl.Field().String())
			return ok
		})
		_ = validate.RegisterValidation("hub_key", func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			return v == "" || ValidateHubKey(v)
		})
	})
	return validate
}

// Struct validates v against its `validate` tags and returns one error
// listing every failed field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
