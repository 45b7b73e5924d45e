// Package parse validates and transforms raw message text into typed field
// values according to a declarative descriptor.
package parse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// GenericReason is the fallback failure reason when neither the descriptor
// nor the field declare one.
const GenericReason = "PARSE_FAIL"

// Error reports that user input did not satisfy a field's validator. It is
// recoverable: callers map Reason to a user-facing message and let the user
// retry without advancing the dialogue.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: field %q", e.Reason, e.Field)
}

// Verdict is the outcome of a validator function.
type Verdict struct {
	ok          bool
	replacement string
	replaced    bool
	reason      string
}

// OK accepts the token as-is.
func OK() Verdict { return Verdict{ok: true} }

// Replace accepts the token and substitutes the given value for it
// (validator-as-extractor).
func Replace(value string) Verdict {
	return Verdict{ok: true, replacement: value, replaced: true}
}

// Reject fails validation with an explicit reason key.
func Reject(reason string) Verdict { return Verdict{reason: reason} }

// ValidateFunc is a predicate validator. It may block on I/O; the returned
// error is an infrastructure failure, distinct from a validation rejection.
type ValidateFunc func(ctx context.Context, token string) (Verdict, error)

// Validator is either a pattern or a predicate function.
type Validator struct {
	re *regexp.Regexp
	fn ValidateFunc
}

// Pattern builds a validator that accepts tokens matching re.
func Pattern(re *regexp.Regexp) Validator { return Validator{re: re} }

// Match compiles expr and builds a pattern validator from it.
func Match(expr string) Validator { return Validator{re: regexp.MustCompile(expr)} }

// Func builds a validator from a predicate.
func Func(fn ValidateFunc) Validator { return Validator{fn: fn} }

func (v Validator) declared() bool { return v.re != nil || v.fn != nil }

// Transform is applied to a token after validation.
type Transform func(string) string

// Built-in transforms.
var (
	Upper Transform = strings.ToUpper
	Lower Transform = strings.ToLower
	Title Transform = func(s string) string {
		prev := ' '
		return strings.Map(func(r rune) rune {
			mapped := r
			if prev == ' ' || prev == '\t' {
				mapped = []rune(strings.ToUpper(string(r)))[0]
			} else {
				mapped = []rune(strings.ToLower(string(r)))[0]
			}
			prev = r
			return mapped
		}, s)
	}
	// Numeric normalizes a numeric token ("007.50" -> "7.5"). Tokens that do
	// not parse are left untouched; declare a pattern validator to reject them.
	Numeric Transform = func(s string) string {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return s
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
)

// Field is the declarative rule for one token of user input.
type Field struct {
	Name      string
	Validate  Validator
	Transform Transform
	Optional  bool
	// Clean strips matches from the token before validation.
	Clean *regexp.Regexp
	// Fail overrides the failure reason for this field.
	Fail string
}

// Cleaner strips noise from the whole input before tokenizing.
type Cleaner struct {
	re      *regexp.Regexp
	replace string
}

// CleanPattern removes every match of re from the input.
func CleanPattern(re *regexp.Regexp) Cleaner { return Cleaner{re: re} }

// CleanTokens removes the given literal tokens (case-insensitive), collapsing
// each match and its surrounding spacing into a single space.
func CleanTokens(tokens ...string) Cleaner {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(`(?i)\s*(` + strings.Join(quoted, "|") + `)\s*`)
	return Cleaner{re: re, replace: " "}
}

func (c Cleaner) apply(s string) string {
	if c.re == nil {
		return s
	}
	return c.re.ReplaceAllString(s, c.replace)
}

// Descriptor describes how to tokenize one input string into one or many
// field values.
type Descriptor struct {
	Split  *regexp.Regexp
	Clean  Cleaner
	Fields []Field
	// ErrorPrefix, when set, keys failure reasons as PREFIX + FIELD + "_ERR".
	ErrorPrefix string
	// Fail is the descriptor-wide fallback failure reason.
	Fail string
}

// Parse runs the input through the descriptor's clean/split/validate/transform
// pipeline. A descriptor declaring a single field yields a scalar Value; a
// multi-field descriptor yields a map Value. Callers rely on that asymmetry.
func Parse(ctx context.Context, input string, d Descriptor) (Value, error) {
	cleaned := d.Clean.apply(input)

	var tokens []string
	if d.Split != nil {
		tokens = d.Split.Split(cleaned, -1)
	} else {
		tokens = []string{cleaned}
	}

	produced := make(map[string]string, len(d.Fields))

	for i, f := range d.Fields {
		var token string
		if i < len(tokens) {
			token = tokens[i]
		}
		if token == "" && f.Optional {
			continue
		}
		if f.Clean != nil {
			token = f.Clean.ReplaceAllString(token, "")
		}

		if f.Validate.declared() {
			replaced, err := runValidator(ctx, f.Validate, token, d, f)
			if err != nil {
				return Value{}, err
			}
			token = replaced
		}

		if f.Transform != nil {
			token = f.Transform(token)
		}
		produced[f.Name] = token
	}

	// The scalar-vs-map shape follows the declared arity, not how many
	// optional fields the input happened to fill.
	if len(d.Fields) == 1 {
		return Scalar(produced[d.Fields[0].Name]), nil
	}
	return Fields(produced), nil
}

func runValidator(ctx context.Context, v Validator, token string, d Descriptor, f Field) (string, error) {
	if v.re != nil {
		if !v.re.MatchString(token) {
			return "", failure(d, f, "")
		}
		return token, nil
	}

	verdict, err := v.fn(ctx, token)
	if err != nil {
		return "", fmt.Errorf("validate field %q: %w", f.Name, err)
	}
	if !verdict.ok {
		return "", failure(d, f, verdict.reason)
	}
	if verdict.replaced {
		return verdict.replacement, nil
	}
	return token, nil
}

// failure resolves the reason key for a rejected token. An explicit verdict
// reason wins; otherwise the descriptor prefix, the field override, the
// descriptor fallback, and finally the generic reason apply in that order.
func failure(d Descriptor, f Field, reason string) error {
	if reason == "" {
		switch {
		case d.ErrorPrefix != "":
			reason = d.ErrorPrefix + strings.ToUpper(f.Name) + "_ERR"
		case f.Fail != "":
			reason = f.Fail
		case d.Fail != "":
			reason = d.Fail
		default:
			reason = GenericReason
		}
	}
	return &Error{Field: f.Name, Reason: reason}
}
