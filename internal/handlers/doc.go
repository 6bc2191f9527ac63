// Package handlers provides the built-in handlers that configuration files
// can bind routes to by name.
package handlers
