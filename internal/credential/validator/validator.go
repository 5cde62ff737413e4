// Package validator classifies decoded credential records. Validation is pure:
// the current time is always supplied by the caller.
package validator

import (
	"time"

	"sapp/internal/credential/models"
)

// Validator checks records against the expected issuer.
type Validator struct {
	expectedIssuer string
}

// New creates a Validator accepting records stamped by expectedIssuer.
func New(expectedIssuer string) *Validator {
	return &Validator{expectedIssuer: expectedIssuer}
}

// Validate returns the verdict for rec as of now.
func (v *Validator) Validate(rec models.CredentialRecord, now time.Time) models.Verdict {
	verdict, _ := v.Explain(rec, now)
	return verdict
}

// Explain returns the verdict with its machine-readable reason. Checks run in
// order: required fields, issuer, expiry. A record without an expiry is expired,
// and expiry is inclusive, so now == ExpiresAt is already EXPIRED.
func (v *Validator) Explain(rec models.CredentialRecord, now time.Time) (models.Verdict, string) {
	switch {
	case !rec.HasRequiredFields():
		return models.VerdictInvalid, models.ReasonMissingFields
	case rec.Issuer != v.expectedIssuer:
		return models.VerdictForeignIssuer, models.ReasonForeignIssuer
	case rec.ExpiresAt.IsZero() || !now.Before(rec.ExpiresAt):
		return models.VerdictExpired, models.ReasonExpired
	default:
		return models.VerdictValid, models.ReasonValid
	}
}
