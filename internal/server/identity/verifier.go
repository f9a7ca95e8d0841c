// Package identity resolves bearer credentials to account ids.
//
// Verification is always real signature verification: either delegated
// to the identity provider's verification endpoint or performed locally
// with the provider's signing key. Decoding a token without verifying
// it is forbidden; a forged subject claim would otherwise grant decrypt
// capability for any account.
package identity

import "context"

// Verifier resolves a bearer credential to an account id. The token is
// passed without the "Bearer " prefix.
type Verifier interface {
	VerifyCredential(ctx context.Context, token string) (accountID string, err error)
}
