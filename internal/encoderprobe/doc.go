// Package encoderprobe decides between hardware and software video encoding
// by running a minimal trial encode. Hardware absence is an expected
// condition, so the probe reports a software fallback decision instead of an
// error.
package encoderprobe
