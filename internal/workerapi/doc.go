// Package workerapi is the bearer-token REST client workers use instead of
// direct database access. All paths crossing this boundary are canonical and
// every call fails closed on transport or auth errors.
package workerapi
