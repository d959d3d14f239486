package common

import "strings"

// ParseBearer extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively; an empty value,
// another scheme, or an empty token yields ErrMissingToken.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", ErrMissingToken
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMissingToken
	}

	return token, nil
}
