// Package timeline builds the ordered segment list for a compilation. The
// builder is pure: it validates the clip selection, interleaves bumper and
// transition segments per configuration, and attaches overlay parameters,
// without performing any I/O or invoking the encoder.
package timeline
