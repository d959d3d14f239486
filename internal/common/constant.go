package common

// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC metadata
// key) carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme prefixes the token inside the authorization header.
const BearerScheme = "Bearer"

// EnvironmentDevelopment enables diagnostic detail in error responses.
const EnvironmentDevelopment = "development"
