// Package auth implements the Spotify authorization-code flow with PKCE and the credential lifecycle around it.
//
// [Authenticator.Authenticate] runs the interactive flow through a [Consent] collaborator,
// [Authenticator.Refresh] trades a refresh token for a new access token and [Authenticator.ValidToken] hands callers
// a usable access token (or "" when none can be had). Credentials live in an injected [Store].
package auth
