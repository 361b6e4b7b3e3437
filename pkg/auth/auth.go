package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken indicates a credential was constructed without a token.
	ErrMissingToken = errors.New("missing API token")
	// ErrMissingKey indicates that the Authorization header was not provided.
	ErrMissingKey = errors.New("missing API key")
	// ErrInvalidPrefix indicates the header did not use the required scheme.
	ErrInvalidPrefix = errors.New("invalid authorization prefix")
)

// Credential builds the Authorization header value for one provider. The
// image provider uses the Token scheme, the 3D provider uses Bearer.
type Credential struct {
	Scheme string
	Token  string
}

// TokenCredential returns a "Token <t>" credential.
func TokenCredential(token string) Credential {
	return Credential{Scheme: "Token", Token: token}
}

// BearerCredential returns a "Bearer <t>" credential.
func BearerCredential(token string) Credential {
	return Credential{Scheme: "Bearer", Token: token}
}

// HeaderValue renders the Authorization header value.
func (c Credential) HeaderValue() (string, error) {
	if strings.TrimSpace(c.Token) == "" {
		return "", ErrMissingToken
	}
	return c.Scheme + " " + c.Token, nil
}

// Apply sets the Authorization header on an outgoing request.
func (c Credential) Apply(r *http.Request) error {
	value, err := c.HeaderValue()
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", value)
	return nil
}

// ExtractKey parses the gateway's Bearer Authorization header.
func ExtractKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingKey
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidPrefix
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", ErrMissingKey
	}

	return token, nil
}
