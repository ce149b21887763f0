// Package google provides OAuth2 authentication and token storage for the
// Google Calendar API.
//
// The OAuth client comes from a credentials.json file or from a client id and
// secret. The authorized user token is stored as JSON in a single file; the
// token source returned by NewTokenSource reads it lazily so the backend can
// start before anyone has signed in, and writes refreshed tokens back.
package google
