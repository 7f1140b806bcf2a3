// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks intake requests, source records, and drafts
// against the acceptance schema. Validation always yields a valid/invalid
// result with per-field messages; it never panics past this boundary.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/paperbot/pkg/types"
)

// minSourceYear is the oldest publication year a source may carry.
const minSourceYear = 2020

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for blank tags; these are compile-time constants.
	val.RegisterValidation("doi", func(fl validator.FieldLevel) bool {
		return doiPattern.MatchString(fl.Field().String())
	})
	val.RegisterValidation("academicyear", func(fl validator.FieldLevel) bool {
		y := int(fl.Field().Int())
		return y >= minSourceYear && y <= time.Now().Year()
	})
	return val
}

// FieldError describes one failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of a validation pass.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// Valid reports whether the checked value passed.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// String renders the per-field messages one per line, for user-facing replies.
func (r Result) String() string {
	if r.Valid() {
		return "ok"
	}
	lines := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		lines[i] = e.Field + ": " + e.Message
	}
	return strings.Join(lines, "\n")
}

// Intake validates a confirmed paper request. Topic and user type are
// required; format, length, deadline, and tags are optional.
func Intake(in types.Intake) Result {
	return check(struct {
		Topic       string `validate:"required,min=3"`
		UserType    string `validate:"required,oneof=student tutor mixed guest"`
		Format      string `validate:"omitempty,oneof=APA MLA Chicago"`
		LengthPages int    `validate:"omitempty,min=1,max=50"`
	}{
		Topic:       strings.TrimSpace(in.Topic),
		UserType:    string(in.UserType),
		Format:      string(in.Format),
		LengthPages: in.LengthPages,
	})
}

// Source validates a candidate source record. Title and DOI are required;
// year, when present, must be recent.
func Source(s types.SourceRecord) Result {
	return check(struct {
		Title string `validate:"required"`
		DOI   string `validate:"required,doi"`
		Year  int    `validate:"omitempty,academicyear"`
	}{
		Title: strings.TrimSpace(s.Title),
		DOI:   s.DOI,
		Year:  s.Year,
	})
}

// Draft validates a generated draft before it is accepted.
func Draft(d types.Draft) Result {
	return check(struct {
		Topic           string  `validate:"required"`
		Content         string  `validate:"required"`
		Format          string  `validate:"omitempty,oneof=APA MLA Chicago"`
		LengthPages     int     `validate:"omitempty,min=1,max=50"`
		PlagiarismScore float64 `validate:"min=0,max=1"`
	}{
		Topic:           d.Topic,
		Content:         d.Content,
		Format:          string(d.Format),
		LengthPages:     d.LengthPages,
		PlagiarismScore: d.PlagiarismScore,
	})
}

// check runs the validator and converts its errors into per-field messages.
func check(s any) Result {
	err := v.Struct(s)
	if err == nil {
		return Result{}
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-validation failure (bad schema); report without panicking.
		return Result{Errors: []FieldError{{Field: "schema", Message: err.Error()}}}
	}

	var out Result
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: message(fe),
		})
	}
	return out
}

// message maps a validator tag to a human-readable description.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "doi":
		return "must be a DOI like 10.1145/1234567.1234568"
	case "academicyear":
		return fmt.Sprintf("must be between %d and %d", minSourceYear, time.Now().Year())
	default:
		return "is invalid"
	}
}
