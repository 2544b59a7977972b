// Package server implements the MCP (Model Context Protocol) server for image editing tools.
//
// This package provides a JSON-RPC 2.0 server that exposes editing sessions
// through the MCP protocol. A client opens a session on an image, applies
// crop, resize, rotate and flip edits, undoes them, and saves the result.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Sources:
//   - image_register: Turn raw bytes into a transient blob: handle
//   - image_release: Drop a reference to a blob: handle
//   - image_load: Load any locator and report its dimensions
//
// Session Lifecycle:
//   - editor_open: Start a session on a locator
//   - editor_save: Persist the current image and end the session
//   - editor_close: End a session without saving
//
// Edit Operations:
//   - editor_crop: Crop in pixels or percent
//   - editor_resize: Resize to explicit or tracked target dimensions
//   - editor_set_dimensions: Adjust target dimensions and the aspect lock
//   - editor_rotate: Rotate clockwise by any angle
//   - editor_flip: Mirror horizontally or vertically
//   - editor_undo: Revert the last edit
//
// Inspection:
//   - editor_history: Session state and optionally every history locator
//   - editor_sample_color: Color at a pixel of the current image
//
// # Locators
//
// Images are referenced by locator strings: blob: handles, data: URIs,
// http(s) URLs and file paths. Every history entry is a self-contained
// PNG data: URI, so a session never depends on a handle staying alive.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed arguments, -32000 for tool failures
//   - message: for a failed edit, "Failed to <op> image. Please try again."
//   - data: the underlying Go error string
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(server.Options{Manager: manager, Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
