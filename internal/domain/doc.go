// Package domain contains the core domain entities and value objects for livestream.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (camera drivers, ffmpeg, HTTP,
// logging) and contains only plain data and the rules attached to it.
//
// # Entities
//
//   - [FrameFormat]: Geometry, rate and pixel layout shared by capture and encoder
//   - [Frame]: A single raw frame read from the camera
//   - [Playlist]: The parsed HLS media playlist produced by the encoder
//   - [PlaylistUpdate]: A playlist snapshot published after the encoder rewrites it
//
// # Design Principles
//
// Domain entities are:
//   - Free of infrastructure dependencies
//   - Focused on invariants (e.g. a frame is exactly FrameSize bytes)
//   - Testable without mocks or external systems
package domain
