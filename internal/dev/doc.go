// Package dev is the development-mode bundler middleware.
//
// It sits first in the dispatch order for every non-API request and:
//   - serves the live-reload WebSocket at /_dev/reload and its client at
//     /_dev/client.js
//   - serves files from the public directory and raw module sources
//   - injects the client script into the document template
//     (TransformIndexHTML)
//   - watches the project and tells browsers to reload, swap stylesheets,
//     or show an error overlay
//   - rewrites render errors and panic stacks to project-relative source
//     positions (FixStacktrace)
//
// # Reload Protocol
//
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // full page reload
//	{"type": "css", "file": "..."}    // stylesheet-only reload
//	{"type": "error", "error": "..."} // show the error overlay
//	{"type": "clear"}                 // clear the error overlay
package dev
