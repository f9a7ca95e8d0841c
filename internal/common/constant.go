package common

// AuthorizationHeaderName is the HTTP header carrying the caller's
// bearer credential on every operation.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the expected scheme prefix of the Authorization header.
const BearerPrefix = "Bearer "
