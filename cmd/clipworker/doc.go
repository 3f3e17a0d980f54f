// Command clipworker is the ClippyFront compilation worker.
//
// `clipworker run` claims compilation jobs from the shared SQLite queue and
// renders them with FFmpeg, reporting progress back to the ClippyFront
// application API. The remaining subcommands inspect and manage the queue,
// configuration, and external dependencies from the same machine.
package main
