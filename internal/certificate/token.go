package certificate

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"veripass/internal/assessment"
	dErrors "veripass/pkg/domain-errors"
)

// Claims are the signed certificate token claims. The token carries only
// published fields — no answer data — so it is safe to embed in documents
// handed to suppliers.
type Claims struct {
	VerificationHash string  `json:"verification_hash"`
	Outcome          string  `json:"outcome"`
	FinalPercentage  float64 `json:"final_percentage"`
	ManifestVersion  string  `json:"manifest_version"`
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 certificate tokens.
type Signer struct {
	signingKey []byte
	issuer     string
}

func NewSigner(signingKey, issuer string) *Signer {
	return &Signer{signingKey: []byte(signingKey), issuer: issuer}
}

// Sign issues the certificate token for an evaluated assessment. The token
// expires with the certificate's validity window.
func (s *Signer) Sign(a *assessment.Assessment, verdict *assessment.Verdict, hash, manifestVersion string, evaluatedAt, validUntil time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		VerificationHash: hash,
		Outcome:          string(verdict.Outcome),
		FinalPercentage:  assessment.Round6(verdict.Score.FinalPercentage),
		ManifestVersion:  manifestVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        a.ID.String(),
			Subject:   a.SupplierID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(evaluatedAt),
			ExpiresAt: jwt.NewNumericDate(validUntil),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses a certificate token and returns its claims.
//
// Errors: CodeUnauthorized for expired, tampered, or foreign tokens.
func (s *Signer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "certificate token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid certificate token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid certificate token claims")
	}
	return claims, nil
}
