// Package server implements the MCP (Model Context Protocol) server for sheet
// calibration.
//
// This package provides a JSON-RPC 2.0 server that exposes the calibration
// pipeline through the MCP protocol, so MCP clients can measure objects
// photographed next to a reference sheet.
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
// Calibration:
//   - sheet_calibrate: Full pipeline, optional annotated image and cm grid
//   - sheet_detect: Sheet bounding box before and after deskewing
//   - sheet_markers: Markers on the deskewed sheet
//
// Session:
//   - sheet_select_marker: Pick the calibration marker by point
//   - sheet_measure_distance: Pixel and cm distance on the sheet
//
// Batch:
//   - sheet_batch_compare: Compare every image of a folder with the first
//
// # Sessions
//
// A successful sheet_calibrate stores a session keyed by image path holding
// the run's markers and current calibration. The session tools read and
// update it under the server's mutex. Calibrating the same path again
// replaces the session; a failed run removes it.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or -32602 (malformed params)
//   - message: Human-readable error description
//   - data: The Go error string
//
// An image the pipeline cannot calibrate is not an execution error. The
// tool succeeds and its result carries the terminal state and a diagnostic.
//
// # Usage
//
//	srv := server.New(config.Load(), logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
