// Package jobspec defines the structured options payload stored with each
// queued compilation job. The enqueuing side writes it; the compile stage
// parses it to learn which intro, outro, bumper, and transitions to render
// and which encode settings override the worker defaults.
package jobspec
