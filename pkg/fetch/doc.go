// Package fetch bridges net/http and a fetch-style Request/Response pair.
//
// Handlers written against the fetch shape receive a fully buffered Request
// (absolute URL, all header values, whole body) and return a Response that
// is written back in one piece:
//
//	api := fetch.HandlerFunc(func(req *fetch.Request) (*fetch.Response, error) {
//	    return fetch.JSON(http.StatusOK, map[string]string{"message": "hi"})
//	})
//	http.Handle("/api/", fetch.Serve(api))
//
// Nothing is streamed: request and response bodies are held in memory in
// both directions.
package fetch
