// Package log provides logging helpers for lexgraph, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Automatic truncation of oversized attribute values (page bodies,
//     link lists) so a single log line never dumps a whole scraped page
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Usage
//
//	// Create a logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("page fetched",
//	    "url", "/codice-civile/art1414.html",
//	    "body", hugeHTML, // truncated in the log output
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
