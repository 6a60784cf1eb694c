// Package logging provides file-based logging with rotation for twilogd.
// When the --debug flag is set, comprehensive logs are written to ~/.twilogd/logs/
// for debugging and troubleshooting.
//
// Without --debug, CLI commands log to stderr only. The hidden _daemon
// process always writes info-level logs to ~/.twilogd/logs/ as well as stderr.
package logging
