package core

import "net/http"

// HTTPDoer is the injected HTTP capability handed to every component that
// talks to a collaborator, so tests can substitute deterministic fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
