// Package render turns a request URL into the full HTML document sent for
// first paint.
//
// A document template is ordinary HTML containing the placeholder
// <!--app-html-->. Rendering a URL produces an HTML fragment through a
// RenderFunc, and the fragment replaces the placeholder:
//
//	<div id="app"><!--app-html--></div>
//
// Two strategies implement Strategy:
//
//   - DevStrategy re-reads the template, passes it through the bundler's
//     Transformer and reloads the server entry on every request, so edits
//     show up without a restart.
//   - ProdStrategy reads the built template and loads the built entry once.
//     Requests only call the cached RenderFunc and splice; no files are
//     read while serving.
//
// Failures are returned as coded errors (E100–E104) for the dispatcher to
// turn into a 500.
package render
