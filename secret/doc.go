// Package secret resolves credentials referenced from profile configuration.
//
// A configured value may be a literal, may contain ${VAR} references that
// are expanded strictly (a missing variable is an error), or may be a
// secret reference of the form:
//
//	secretref:<provider>:<ref>
//
// Two providers are built in:
//   - env:  secretref:env:SPLUNK_PROD_PASSWORD
//   - file: secretref:file:/run/secrets/splunk_prod_token
//
// Resolved values are never logged.
package secret
