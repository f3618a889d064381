// Package auth verifies identity-provider tokens and admin API keys and puts
// the resulting common.Identity on the request context.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-mithai/internal/common"
)

const (
	claimEmail = "email"
	claimRole  = "role"
	claimRoles = "roles"
	roleAdmin  = "admin"
)

// TokenValidator validates structural and contextual properties of JWT tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures the supplied token satisfies issuer, audience, expiry, and algorithm requirements.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

// VerifierConfig configures token verification.
type VerifierConfig struct {
	Secret      string
	Issuer      string
	Audience    string
	ClockSkew   time.Duration
	AdminEmails []string
}

// Verifier checks HS256 tokens minted by the identity provider.
type Verifier struct {
	secret      []byte
	issuer      string
	audience    string
	validator   TokenValidator
	adminEmails map[string]struct{}
	now         func() time.Time
}

// NewVerifier builds a verifier. The shared secret is required.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
			Algorithm: jwa.HS256,
		},
		adminEmails: admins,
		now:         time.Now,
	}, nil
}

// WithNow overrides the clock used for validation and issuing.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Verify validates token and maps its claims to an identity.
func (v *Verifier) Verify(token string) (common.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Identity{}, unauthorized("missing token", nil)
	}
	algorithm, err := tokenAlgorithm(trimmed)
	if err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	if algorithm != v.validator.Algorithm {
		return common.Identity{}, unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	id := common.Identity{UserID: parsed.Subject()}
	if raw, ok := parsed.Get(claimEmail); ok {
		if email, ok := raw.(string); ok {
			id.Email = strings.ToLower(strings.TrimSpace(email))
		}
	}
	id.Admin = hasAdminRole(parsed) || v.isAdminEmail(id.Email)
	return id, nil
}

func (v *Verifier) isAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	_, ok := v.adminEmails[email]
	return ok
}

func hasAdminRole(tok jwt.Token) bool {
	if raw, ok := tok.Get(claimRole); ok {
		if role, ok := raw.(string); ok && strings.EqualFold(role, roleAdmin) {
			return true
		}
	}
	raw, ok := tok.Get(claimRoles)
	if !ok {
		return false
	}
	roles, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, r := range roles {
		if role, ok := r.(string); ok && strings.EqualFold(role, roleAdmin) {
			return true
		}
	}
	return false
}

// Issue signs a token for id. Used by tests and local tooling; production
// tokens come from the identity provider.
func (v *Verifier) Issue(id common.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(id.UserID).
		IssuedAt(now).
		NotBefore(now.Add(-v.validator.ClockSkew)).
		Expiration(now.Add(ttl))
	if v.issuer != "" {
		builder = builder.Issuer(v.issuer)
	}
	if v.audience != "" {
		builder = builder.Audience([]string{v.audience})
	}
	if id.Email != "" {
		builder = builder.Claim(claimEmail, id.Email)
	}
	if id.Admin {
		builder = builder.Claim(claimRole, roleAdmin)
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	if alg == jwa.NoSignature {
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func unauthorized(message string, err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}
