// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [FrameSource]: Reads raw frames from a camera (OpenCV, a capture command, a generator)
//   - [Encoder]: Accepts raw frames and produces the HLS playlist and segments
//   - [PlaylistSubscriber]: Receives playlist updates from the segment watcher
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (gocv, ffmpeg, fsnotify, zerolog, etc.).
package ports
