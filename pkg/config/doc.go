// Package config loads the process configuration from the environment.
//
// Variables use the GRINPLACE_ prefix. The legacy names JWT_SECRET,
// DATABASE_URL, REDIS_URL, PORT, NODE_ENV and the AWS_* S3 variables are
// honoured as fallbacks so existing deployments keep working.
//
// LoadConfig is called once at start-up; the returned *Config is passed to
// constructors and never mutated afterwards.
package config
