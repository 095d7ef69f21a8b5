package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds the request body into out and, on failure, responds 400
// with a field -> message map. Returns false when the request is done.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondValidation(ctx, "Invalid request body", bindErrorFields(err, out))

		return false
	}

	return true
}

func bindErrorFields(err error, out interface{}) map[string]string {
	fields := map[string]string{}

	var validatorErrs validator.ValidationErrors

	if errors.As(err, &validatorErrs) {
		for _, fe := range validatorErrs {
			fields[jsonFieldName(out, fe.Field())] = validationMessage(fe.Tag(), fe.Param())
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &typeErr) {
		name := typeErr.Field
		if name == "" {
			name = "body"
		}
		fields[name] = fmt.Sprintf("must be of type %s", typeErr.Type.String())
		return fields
	}

	var syntaxErr *json.SyntaxError

	if errors.As(err, &syntaxErr) {
		fields["body"] = "is not valid JSON"
		return fields
	}

	fields["body"] = err.Error()
	return fields
}

// jsonFieldName maps a struct field name back to its json tag so error
// keys match what the client actually sent.
func jsonFieldName(out interface{}, fieldName string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return fieldName
	}

	sf, ok := t.FieldByName(fieldName)

	if !ok {
		return fieldName
	}

	tag := sf.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")

	if name == "" || name == "-" {
		return fieldName
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
