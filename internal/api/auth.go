package api

import (
	"net/http"
	"strings"
)

// Authenticator resolves an incoming request to a subject id. The session
// system that issues tokens lives outside this service; handlers only need
// to know which subject is calling.
type Authenticator interface {
	Authenticate(r *http.Request) (subjectID string, ok bool)
}

// StaticTokenAuthenticator maps bearer tokens to subject ids from a fixed
// table, typically loaded from the environment at startup.
type StaticTokenAuthenticator struct {
	tokens map[string]string
}

// NewStaticTokenAuthenticator builds an authenticator over a token → subject
// table. The map is not copied; callers must not mutate it afterwards.
func NewStaticTokenAuthenticator(tokens map[string]string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{tokens: tokens}
}

func (a *StaticTokenAuthenticator) Authenticate(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	subject, ok := a.tokens[token]
	return subject, ok
}
