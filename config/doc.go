// Package config loads adminops settings from the environment.
//
// Global settings use the ADMINOPS_ prefix. Each profile named in
// ADMINOPS_PROFILES reads its own variables under ADMINOPS_<PROFILE>_, for
// example ADMINOPS_PROD_URL and ADMINOPS_PROD_PASSWORD. Credential values
// may reference other variables (${VAR}) or secrets
// (secretref:env:NAME, secretref:file:/path); both are resolved at load
// time.
package config
