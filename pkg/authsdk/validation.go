package authsdk

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Input limits shared by the server and clients.
const (
	MaxEmailLength     = 254
	MinPasswordLength  = 8
	MaxPasswordLength  = 128
	MinNameLength      = 2
	MaxNameLength      = 100
	MaxLocaleLength    = 35
	MaxAvatarURLLength = 2048
)

const requiredReason = "required"

var reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate returns every rejected field, or nil.
func (r RegisterRequest) Validate() []FieldError {
	var errs []FieldError
	errs = validateEmail(errs, "email", r.Email)
	errs = validatePassword(errs, "password", r.Password)
	errs = validateName(errs, "name", r.Name)
	if r.Locale != "" {
		errs = validateLocale(errs, "locale", r.Locale)
	}
	return errs
}

func (r LoginRequest) Validate() []FieldError {
	var errs []FieldError
	errs = validateEmail(errs, "email", r.Email)
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: requiredReason})
	}
	return errs
}

func (r GoogleRequest) Validate() []FieldError {
	if strings.TrimSpace(r.Credential) == "" {
		return []FieldError{{Field: "credential", Message: requiredReason}}
	}
	return nil
}

func (r GoogleLinkRequest) Validate() []FieldError {
	return GoogleRequest{Credential: r.Credential}.Validate()
}

func (r ChangePasswordRequest) Validate() []FieldError {
	var errs []FieldError
	if r.OldPassword == "" {
		errs = append(errs, FieldError{Field: "oldPassword", Message: requiredReason})
	}
	return validatePassword(errs, "newPassword", r.NewPassword)
}

func (r ForgotPasswordRequest) Validate() []FieldError {
	return validateEmail(nil, "email", r.Email)
}

func (r ResetPasswordRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Token) == "" {
		errs = append(errs, FieldError{Field: "token", Message: requiredReason})
	}
	return validatePassword(errs, "newPassword", r.NewPassword)
}

func (r RefreshRequest) Validate() []FieldError {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return []FieldError{{Field: "refreshToken", Message: requiredReason}}
	}
	return nil
}

func (r UpdateProfileRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DisplayName != nil {
		errs = validateName(errs, "displayName", *r.DisplayName)
	}
	if r.AvatarURL != nil {
		errs = validateAvatarURL(errs, "avatarUrl", *r.AvatarURL)
	}
	if r.Locale != nil {
		errs = validateLocale(errs, "locale", *r.Locale)
	}
	return errs
}

func validateEmail(errs []FieldError, field, v string) []FieldError {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return append(errs, FieldError{Field: field, Message: requiredReason})
	case len(v) > MaxEmailLength:
		return append(errs, FieldError{Field: field, Message: "too long (max 254)"})
	case !reEmail.MatchString(v):
		return append(errs, FieldError{Field: field, Message: "must be a valid email address"})
	}
	return errs
}

// validatePassword requires an ASCII upper and lower case letter, an ASCII
// digit and one character outside [A-Za-z0-9].
func validatePassword(errs []FieldError, field, v string) []FieldError {
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		return append(errs, FieldError{Field: field, Message: requiredReason})
	case n < MinPasswordLength:
		return append(errs, FieldError{Field: field, Message: "too short (min 8)"})
	case n > MaxPasswordLength:
		return append(errs, FieldError{Field: field, Message: "too long (max 128)"})
	}

	var upper, lower, digit, symbol bool
	for _, c := range v {
		switch {
		case 'A' <= c && c <= 'Z':
			upper = true
		case 'a' <= c && c <= 'z':
			lower = true
		case '0' <= c && c <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return append(errs, FieldError{
			Field:   field,
			Message: "must contain an uppercase letter, a lowercase letter, a digit and a symbol",
		})
	}
	return errs
}

func validateName(errs []FieldError, field, v string) []FieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	switch {
	case n == 0:
		return append(errs, FieldError{Field: field, Message: requiredReason})
	case n < MinNameLength:
		return append(errs, FieldError{Field: field, Message: "too short (min 2)"})
	case n > MaxNameLength:
		return append(errs, FieldError{Field: field, Message: "too long (max 100)"})
	}
	return errs
}

func validateLocale(errs []FieldError, field, v string) []FieldError {
	if len(v) > MaxLocaleLength {
		return append(errs, FieldError{Field: field, Message: "too long (max 35)"})
	}
	if _, err := language.Parse(v); err != nil {
		return append(errs, FieldError{Field: field, Message: "must be a BCP 47 language tag"})
	}
	return errs
}

// validateAvatarURL accepts an absolute http(s) URL. Empty clears the avatar.
func validateAvatarURL(errs []FieldError, field, v string) []FieldError {
	v = strings.TrimSpace(v)
	if v == "" {
		return errs
	}
	if len(v) > MaxAvatarURLLength {
		return append(errs, FieldError{Field: field, Message: "too long (max 2048)"})
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return append(errs, FieldError{Field: field, Message: "must be an http or https URL"})
	}
	return errs
}
