// Package resolve rebases canonical media paths from the web application onto
// the worker's local filesystem using alias rules and the instance root.
package resolve
