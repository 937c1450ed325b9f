// Package validation checks request bodies and profiles against their
// validate struct tags. Field names in results follow the json tags.
package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/canonica-labs/d1bridge/internal/errors"
)

var (
	// Use a singleton validator instance to avoid recreating it
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()

		// register function to get tag name from json tags.
		validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

			if name == "-" {
				return ""
			}

			return name
		})
	})

	return validatorInstance
}

// Validate returns the failed fields of input with their messages. Messages
// are looked up by "field.tag"; a missing message falls back to a generic
// one. Returns nil when input is valid.
func Validate(input any, messages map[string]string) map[string][]string {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"": {err.Error()}}
	}

	out := make(map[string][]string)
	for _, fe := range verrs {
		field := fe.Field()
		// Keep the index of dived slices, e.g. "profiles[0].id".
		if ns := fe.Namespace(); strings.Contains(ns, "[") {
			field = ns[strings.Index(ns, ".")+1:]
		}

		msg := messages[fmt.Sprintf("%s.%s", fe.Field(), fe.Tag())]
		if msg == "" {
			msg = fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
		}
		out[field] = append(out[field], msg)
	}
	return out
}

// Check validates input and returns the first failure, by field name, as a
// bad request error.
func Check(input any, messages map[string]string) error {
	failures := Validate(input, messages)
	if len(failures) == 0 {
		return nil
	}

	fields := make([]string, 0, len(failures))
	for f := range failures {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return errors.NewBadRequest(fields[0], failures[fields[0]][0])
}
