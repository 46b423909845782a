// Package static serves pre-built client assets in production.
//
// A request is treated as a static asset when its path (query stripped) has
// a file extension other than ".html". Assets are read from a Source (a
// local build directory or an S3 bucket) and answered with a Content-Type
// taken from a fixed extension table; unknown extensions are served as
// application/octet-stream. Missing or unreadable files answer 404 with a
// plain text body.
//
//	resolver := static.NewResolver(static.NewDirSource("dist/client"), static.Options{
//	    CacheControl: static.CacheControlProduction,
//	})
//	if static.IsAsset(r.URL.RequestURI()) {
//	    resolver.ServeHTTP(w, r)
//	}
package static
