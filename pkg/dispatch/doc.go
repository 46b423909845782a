// Package dispatch routes requests through an ordered list of
// predicate/handler pairs. The first route whose Match returns true handles
// the request; later routes are never consulted.
//
// Handlers return errors instead of writing failure responses. Errors and
// panics end up in one catch-all that logs them and answers 500 with a
// plain text body, unless the handler already started the response.
package dispatch
