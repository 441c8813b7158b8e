package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity es lo que el ledger necesita saber del portador del token.
// CompanyID es el tenant: todo acceso se parametriza con este valor, nunca con IDs enviados por el cliente.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

type claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

var (
	ErrEmptySecret = errors.New("jwt: secret vacío")
	ErrNoTenant    = errors.New("jwt: token sin company_id")
	ErrNoSubject   = errors.New("jwt: token sin sub")
)

// clockSkew tolerancia entre el emisor y este servicio.
const clockSkew = 30 * time.Second

// Verifier valida tokens HS256 emitidos por el servicio de identidad.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier construye el verificador. issuer vacío no exige iss.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify valida firma, expiración y emisor, y devuelve la identidad del portador.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var c claims
	if _, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...); err != nil {
		return Identity{}, fmt.Errorf("jwt: %w", err)
	}
	if c.Subject == "" {
		return Identity{}, ErrNoSubject
	}
	if c.CompanyID == "" {
		return Identity{}, ErrNoTenant
	}
	return Identity{UserID: c.Subject, CompanyID: c.CompanyID, Role: c.Role}, nil
}

// Issue firma un token para id. En producción los tokens los emite el servicio de identidad;
// aquí se usa en tests y herramientas de operación.
func Issue(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	})
	return token.SignedString([]byte(secret))
}
