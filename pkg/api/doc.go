// Package api implements the JSON namespace mounted under /api.
//
// Handlers take a fetch-style request and return either a value, which is
// answered as JSON with status 200, or a *fetch.Response for full control:
//
//	ns := api.New(api.Options{})
//	ns.Get("/users/{id}", func(req *fetch.Request) (any, error) {
//		return map[string]string{"id": api.Param(req, "id")}, nil
//	})
//
// Routing uses chi patterns relative to the prefix. Unknown paths and
// methods answer 404 with a plain text body.
package api
