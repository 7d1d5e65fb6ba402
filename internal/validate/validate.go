// Package validate checks solution and profile forms before they reach the network,
// using the same bounds the backend enforces.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/colthorp/devdocs-cli-go/internal/api"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Errors maps a field name to its first validation message.
type Errors map[string]string

func (e Errors) Error() string {
	return api.JoinFieldErrors(e.FieldErrors())
}

// FieldErrors returns the errors sorted by field.
func (e Errors) FieldErrors() []api.FieldError {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]api.FieldError, 0, len(fields))
	for _, f := range fields {
		out = append(out, api.FieldError{Field: f, Message: e[f], Code: "value_error"})
	}
	return out
}

// NormalizeTags trims and lower-cases tags, dropping blanks.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeLanguage trims and lower-cases a language name.
func NormalizeLanguage(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// Solution normalizes in and validates it. It returns nil when in is valid.
func Solution(in *api.SolutionInput) Errors {
	in.Language = NormalizeLanguage(in.Language)
	in.Tags = NormalizeTags(in.Tags)
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return check(in)
}

// Patch normalizes p and validates the fields it sets.
func Patch(p *api.SolutionPatch) Errors {
	if p.Language != nil {
		lang := NormalizeLanguage(*p.Language)
		p.Language = &lang
	}
	p.Tags = NormalizeTags(p.Tags)
	return check(p)
}

// Profile normalizes p and validates the fields it sets.
func Profile(p *api.ProfilePatch) Errors {
	trim := func(f *string) *string {
		if f == nil {
			return nil
		}
		v := strings.TrimSpace(*f)
		return &v
	}
	p.FullName = trim(p.FullName)
	p.GithubUsername = trim(p.GithubUsername)
	p.TwitterUsername = trim(p.TwitterUsername)
	p.WebsiteURL = trim(p.WebsiteURL)
	p.AvatarURL = trim(p.AvatarURL)
	if p.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*p.Theme))
		p.Theme = &theme
	}
	if p.Language != nil {
		lang := NormalizeLanguage(*p.Language)
		p.Language = &lang
	}
	return check(p)
}

func check(s any) Errors {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return Errors{"": err.Error()}
	}
	out := Errors{}
	for _, fe := range ve {
		field, _, _ := strings.Cut(fe.Field(), "[")
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe)
	}
	return out
}

func message(field string, fe validator.FieldError) string {
	if field == "tags" {
		return "At least one non-empty tag is required"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label(field))
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label(field), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label(field), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label(field), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL", label(field))
	default:
		return fmt.Sprintf("%s is invalid", label(field))
	}
}

func label(field string) string {
	if field == "" {
		return "Value"
	}
	field = strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(field[:1]) + field[1:]
}
