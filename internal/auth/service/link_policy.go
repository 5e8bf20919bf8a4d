package service

import (
	"fmt"
	"strings"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"golang.org/x/text/language"
)

// LinkPolicy decides whether an external sign-in may attach itself to an
// existing account that was found by email.
type LinkPolicy string

const (
	// LinkConfirm never links implicitly. The owner signs in with their
	// password and calls LinkExternal.
	LinkConfirm LinkPolicy = "confirm"

	// LinkVerifiedEmail links when the provider vouches for the email.
	LinkVerifiedEmail LinkPolicy = "verified_email"

	// LinkAlways links on any email match.
	LinkAlways LinkPolicy = "always"
)

func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch p := LinkPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return LinkConfirm, nil
	case LinkConfirm, LinkVerifiedEmail, LinkAlways:
		return p, nil
	default:
		return "", fmt.Errorf("unknown link policy %q", s)
	}
}

func (p LinkPolicy) String() string {
	if p == "" {
		return string(LinkConfirm)
	}
	return string(p)
}

// Allows reports whether ext may be linked to an account sharing its email.
func (p LinkPolicy) Allows(ext domain.ExternalIdentity) bool {
	switch p {
	case LinkAlways:
		return true
	case LinkVerifiedEmail:
		return ext.EmailVerified
	default:
		return false
	}
}

// normalizeLocale returns the canonical BCP 47 form of tag, or the default
// locale when tag is empty or unparseable.
func normalizeLocale(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return domain.DefaultLocale
	}
	t, err := language.Parse(tag)
	if err != nil {
		return domain.DefaultLocale
	}
	return t.String()
}
