// Package auth provides JWT token generation and validation for the HTTP API.
//
// Tokens are HS256-signed with the shared API secret from config. The
// package also offers unverified expiry extraction for vendor-issued
// bearer tokens, used by bridges to schedule token refresh.
package auth
