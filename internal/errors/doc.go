// Package errors provides structured, actionable errors for ssrhost.
//
// Every error carries a code that maps to a registered template:
//   - E1xx: render pipeline (templates, server entry, pages)
//   - E12x: configuration
//   - E13x: static assets
//   - E2xx: request handling
//
// Errors can be enriched with a source Location, the surrounding source
// lines and the call stack captured when a handler panicked. In development
// the dev server fills those in so the terminal shows where a render failed:
//
//	err := errors.New("E103").
//	    WithLocation("src/pages/about.gohtml", 4, 12).
//	    Wrap(cause)
//
//	fmt.Print(err.Format())
//	// ERROR E103: Page render failed
//	//
//	//   src/pages/about.gohtml:4:12
//	//
//	//        3 │ <h1>About</h1>
//	//   →    4 │ <p>{{ .Missing.Field }}</p>
//	//          │            ^
//	//        5 │ </section>
package errors
