// Package ssrhost is the HTTP entry point of a server-rendered single-page
// application.
//
// An App answers three kinds of requests, tried in order:
//
//  1. /api/* is handed to the JSON API namespace.
//  2. In development every other request is offered to the dev bundler
//     first (live reload, public files, raw sources); HTML page requests it
//     does not answer are rendered from source on every request.
//  3. In production files with an extension are served from the build
//     output and everything else is rendered with the pre-built template
//     and server entry loaded once at startup.
//
// Rendered pages are the template document with the page markup spliced in
// at the <!--app-html--> placeholder; the client bundle hydrates it.
//
//	app, err := ssrhost.New(ctx, ssrhost.Config{Mode: ssrhost.ModeProduction})
//	if err != nil {
//		return err
//	}
//	app.API().Get("/time", func(*fetch.Request) (any, error) {
//		return map[string]string{"now": time.Now().String()}, nil
//	})
//	http.ListenAndServe(":3000", app)
package ssrhost
