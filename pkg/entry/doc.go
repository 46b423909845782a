// Package entry is the server entry: it turns a directory of html/template
// page files into a render function.
//
// Routes come from file names:
//
//	pages/index.gohtml           → /
//	pages/about.gohtml           → /about
//	pages/users/index.gohtml     → /users
//	pages/users/[id].gohtml      → /users/:id
//	pages/docs/[...path].gohtml  → /docs/*path
//
// Files starting with an underscore are not routes:
//
//	_layout.gohtml  wraps every page in its directory and below; layouts nest
//	_404.gohtml     renders unknown URLs (root directory only)
//	_*.gohtml       partials, callable from any page as {{template "_nav.gohtml" .}}
//
// Pages and layouts receive a *Data value. Layouts insert the wrapped page
// with {{.Content}}. The "asset" and "assetCSS" functions resolve built
// file names through an assets.Resolver.
package entry
