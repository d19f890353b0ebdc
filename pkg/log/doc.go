// Package log is the logging surface of livestream for embedding programs.
//
// The stream service logs through the [Logger] interface. This package
// provides a zerolog-backed implementation and a no-op one:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
//	s, err := livestream.New(cfg, livestream.WithLogger(logger))
//
// Any logging library can be plugged in by implementing [Logger]:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field)  { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field)  { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
