// Package referral derives shareable referral codes and links.
//
// Codes come from a remote generator when one is available. When it fails the
// code is derived locally: up to four uppercase letters from the display name
// (or "USER") followed by a zero padded three digit suffix. The local form has
// no uniqueness guarantee; the repository enforces that on insert.
package referral

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const (
	DefaultPrefix = "USER"
	prefixLength  = 4
	suffixRange   = 1000
)

// RemoteGenerator is implemented by repositories that can hand out codes with
// global uniqueness knowledge.
type RemoteGenerator interface {
	GenerateReferralCode(ctx context.Context, name string) (string, error)
}

type Generator struct {
	remote RemoteGenerator
	intn   func(n int) int
	logger *zap.Logger
}

type Option func(*Generator)

// WithRand replaces the suffix source. Tests use it to pin the suffix.
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) {
		g.intn = intn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator builds a Generator. remote may be nil, in which case every code
// is derived locally.
func NewGenerator(remote RemoteGenerator, opts ...Option) *Generator {
	g := &Generator{
		remote: remote,
		intn:   rand.Intn,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate never fails: a remote error falls back to the local derivation.
func (g *Generator) Generate(ctx context.Context, name string) string {
	if g.remote != nil {
		code, err := g.remote.GenerateReferralCode(ctx, name)
		if err == nil && code != "" {
			return code
		}
		g.logger.Warn("remote referral code generation failed, using local fallback",
			zap.String("name", name), zap.Error(err))
	}

	return g.Fallback(name)
}

// Fallback derives a code locally using the generator's suffix source.
func (g *Generator) Fallback(name string) string {
	return Derive(name, g.intn(suffixRange))
}

// Derive joins the cleaned prefix of name with suffix, formatted on three digits.
func Derive(name string, suffix int) string {
	return fmt.Sprintf("%s%03d", Prefix(name), suffix%suffixRange)
}

// Prefix keeps the ASCII letters of name, uppercases them and truncates to
// four characters. An empty result becomes "USER".
func Prefix(name string) string {
	var b strings.Builder

	for _, r := range name {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == prefixLength {
			break
		}
	}

	if b.Len() == 0 {
		return DefaultPrefix
	}

	return b.String()
}

// Link returns base with the ref query parameter set to code.
func Link(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}
