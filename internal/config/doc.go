// Package config loads the ssrhost project file.
//
// The configuration is read from ssrhost.yaml, ssrhost.yml or ssrhost.json
// at the project root. Every field is optional; defaults are applied after
// loading, then environment variables (APP_ENV, PORT, HOST, LOG_LEVEL,
// METRICS_ADDR) and finally command-line flags override them.
//
// # Configuration File Structure
//
//	mode: development
//	host: 0.0.0.0
//	port: 3000
//	paths:
//	  template: index.html
//	  pages: src/pages
//	  public: public
//	  sources: [src]
//	  client: dist/client
//	  server: dist/server/pages
//	static:
//	  source: s3
//	  bucket: my-site-assets
//	  prefix: client/
//	  region: eu-west-1
//	  headers:
//	    X-Frame-Options: DENY
//	api:
//	  prefix: /api
//	  maxBodyBytes: 1048576
//	  rateLimit: 50
//	  rateBurst: 100
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  addr: :9090
//	server:
//	  shutdownTimeout: 10s
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	cfg.ApplyEnv(os.Getenv)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
