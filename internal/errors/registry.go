package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Render Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryRender,
		Message:  "Template read failed",
		Detail:   "The HTML template document could not be read from disk.",
	},
	"E101": {
		Category: CategoryRender,
		Message:  "Template missing placeholder",
		Detail:   "The HTML template must contain the <!--app-html--> marker where rendered markup is inserted.",
	},
	"E102": {
		Category: CategoryRender,
		Message:  "Server entry load failed",
		Detail:   "The page templates of the server entry could not be loaded or parsed.",
	},
	"E103": {
		Category: CategoryRender,
		Message:  "Page render failed",
		Detail:   "Executing the page template for the requested URL returned an error.",
	},
	"E104": {
		Category: CategoryRender,
		Message:  "Template transform failed",
		Detail:   "The development server could not transform the HTML template.",
	},
	"E105": {
		Category: CategoryRender,
		Message:  "Duplicate route",
		Detail:   "Two page files map to the same route pattern.",
	},
	"E106": {
		Category: CategoryRender,
		Message:  "Asset manifest invalid",
		Detail:   "The build manifest could not be read or is not a JSON object of strings.",
	},

	// ============================================
	// Config Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Port must be between 0 and 65535.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid mode",
		Detail:   "Mode must be either \"development\" or \"production\".",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid static source",
		Detail:   "Static source must be \"dir\" or \"s3\"; the s3 source requires a bucket.",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax, e.g. \"10s\" or \"1m30s\".",
	},

	// ============================================
	// Static Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryStatic,
		Message:  "Static file not found",
		Detail:   "No file exists at the requested path in the build output.",
	},
	"E131": {
		Category: CategoryStatic,
		Message:  "Static source unavailable",
		Detail:   "The static asset backend returned an error.",
	},

	// ============================================
	// Request Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryRequest,
		Message:  "Request body read failed",
		Detail:   "The request body could not be read completely.",
	},
	"E201": {
		Category: CategoryRequest,
		Message:  "Request body too large",
		Detail:   "The request body exceeds the configured limit.",
	},
	"E202": {
		Category: CategoryRuntime,
		Message:  "Handler panicked",
		Detail:   "A request handler panicked while serving the request.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
