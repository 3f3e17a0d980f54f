// Package compile implements the compilation render stage: it fetches the
// batched job context from the worker API, enforces tier limits, probes the
// encoder, builds the segment timeline, renders and concatenates segments,
// and finalizes the artifact back to the application.
package compile
