package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "editor_open", "editor_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramError marks a malformed or missing tool argument. It is reported as
// JSON-RPC -32602 rather than a tool failure.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602. Tool execution errors return -32000; a failed
// edit carries its user-facing message, with the cause in data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	s.logger.Debug("tool call", "tool", params.Name, "duration", time.Since(start), "ok", err == nil)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, -32602, "Invalid params", pe.Error())
		}
		var opErr *editor.OperationError
		if errors.As(err, &opErr) {
			return s.errorResponse(req.ID, -32000, opErr.UserMessage(), err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Resolves the session or locator
//  4. Calls into the editor or imaging package
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Sources
	case "image_register":
		return s.handleImageRegister(ctx, args)
	case "image_release":
		return s.handleImageRelease(args)
	case "image_load":
		return s.handleImageLoad(ctx, args)

	// Session Lifecycle
	case "editor_open":
		return s.handleEditorOpen(ctx, args)
	case "editor_save":
		return s.handleEditorSave(ctx, args)
	case "editor_close":
		return s.handleEditorClose(args)

	// Edit Operations
	case "editor_crop":
		return s.handleEditorCrop(ctx, args)
	case "editor_resize":
		return s.handleEditorResize(ctx, args)
	case "editor_set_dimensions":
		return s.handleEditorSetDimensions(args)
	case "editor_rotate":
		return s.handleEditorRotate(ctx, args)
	case "editor_flip":
		return s.handleEditorFlip(ctx, args)
	case "editor_undo":
		return s.handleEditorUndo(ctx, args)

	// Inspection
	case "editor_history":
		return s.handleEditorHistory(args)
	case "editor_sample_color":
		return s.handleEditorSampleColor(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, reporting failures as parameter errors.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("invalid arguments: %v", err)
	}
	return nil
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

func (s *Server) session(id string) (*editor.Session, error) {
	if id == "" {
		return nil, invalidParams("session_id is required")
	}
	return s.manager.Get(id)
}

// === Image Source Handlers ===

type imageRegisterArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

type registerResult struct {
	Locator imaging.Locator `json:"locator"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
}

func (s *Server) handleImageRegister(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageRegisterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.Path == "") == (a.ImageBase64 == "") {
		return nil, invalidParams("exactly one of path or image_base64 is required")
	}

	var data []byte
	if a.Path != "" {
		b, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		data = b
	} else {
		b, err := base64.StdEncoding.DecodeString(a.ImageBase64)
		if err != nil {
			return nil, invalidParams("image_base64 is not valid base64: %v", err)
		}
		data = b
	}

	handles := s.loader.Handles()
	loc := handles.Create(data)
	r, err := s.loader.Load(ctx, loc)
	if err != nil {
		handles.Release(loc)
		return nil, err
	}
	return &registerResult{Locator: loc, Width: r.Width(), Height: r.Height()}, nil
}

type locatorArgs struct {
	Locator imaging.Locator `json:"locator"`
}

func (s *Server) handleImageRelease(args json.RawMessage) (interface{}, error) {
	var a locatorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Locator.Kind() != imaging.KindHandle {
		return nil, invalidParams("locator must be a blob: handle")
	}
	freed := s.loader.Handles().Release(a.Locator)
	return map[string]interface{}{"released": freed}, nil
}

func (s *Server) handleImageLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a locatorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Locator == "" {
		return nil, invalidParams("locator is required")
	}
	return imaging.LoadImageInfo(ctx, s.loader, a.Locator)
}

// === Session Lifecycle Handlers ===

type editorOpenArgs struct {
	Locator         imaging.Locator `json:"locator"`
	LockAspectRatio bool            `json:"lock_aspect_ratio"`
}

func (s *Server) handleEditorOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorOpenArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Locator == "" {
		return nil, invalidParams("locator is required")
	}
	sess, err := s.manager.Open(ctx, a.Locator, a.LockAspectRatio)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(false), nil
}

func (s *Server) handleEditorSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.SessionID == "" {
		return nil, invalidParams("session_id is required")
	}
	return s.manager.Save(ctx, a.SessionID)
}

func (s *Server) handleEditorClose(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.SessionID == "" {
		return nil, invalidParams("session_id is required")
	}
	if err := s.manager.Close(a.SessionID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"closed": true}, nil
}

// === Edit Operation Handlers ===

// maxCropValue keeps crop arguments inside the int32 range before they are
// converted to pixels.
const maxCropValue = math.MaxInt32

type editorCropArgs struct {
	SessionID string  `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Unit      string  `json:"unit"`
}

func (s *Server) handleEditorCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	for _, v := range []float64{a.X, a.Y, a.Width, a.Height} {
		if math.IsNaN(v) || math.Abs(v) > maxCropValue {
			return nil, invalidParams("crop values must be within ±%d, got %v", maxCropValue, v)
		}
	}

	var op imaging.Crop
	switch a.Unit {
	case "", "px":
		for _, v := range []float64{a.X, a.Y, a.Width, a.Height} {
			if v != math.Trunc(v) {
				return nil, invalidParams("pixel crop values must be integers, got %v", v)
			}
		}
		op = imaging.Crop{X: int(a.X), Y: int(a.Y), Width: int(a.Width), Height: int(a.Height)}
	case "percent":
		op = sess.CropFromPercent(a.X, a.Y, a.Width, a.Height)
	default:
		return nil, invalidParams("unit must be px or percent, got %q", a.Unit)
	}
	return sess.Apply(ctx, op)
}

type editorDimensionArgs struct {
	SessionID       string `json:"session_id"`
	Width           *int   `json:"width"`
	Height          *int   `json:"height"`
	LockAspectRatio *bool  `json:"lock_aspect_ratio"`
}

func (s *Server) handleEditorResize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorDimensionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	var op imaging.Resize
	switch {
	case a.Width != nil && a.Height != nil:
		op = imaging.Resize{Width: *a.Width, Height: *a.Height}
	case a.Width != nil:
		op = sess.ResizeForWidth(*a.Width)
	case a.Height != nil:
		op = sess.ResizeForHeight(*a.Height)
	default:
		op = sess.ResizeOperation()
	}
	return sess.Apply(ctx, op)
}

func (s *Server) handleEditorSetDimensions(args json.RawMessage) (interface{}, error) {
	var a editorDimensionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Dimensions()
	if a.LockAspectRatio != nil {
		state = sess.ToggleLock(*a.LockAspectRatio)
	}
	if a.Width != nil {
		state = sess.SetWidth(*a.Width)
	}
	if a.Height != nil {
		state = sess.SetHeight(*a.Height)
	}
	return state, nil
}

type editorRotateArgs struct {
	SessionID string   `json:"session_id"`
	Degrees   *float64 `json:"degrees"`
}

func (s *Server) handleEditorRotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorRotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Degrees == nil {
		return nil, invalidParams("degrees is required")
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.Apply(ctx, imaging.Rotate{Degrees: *a.Degrees})
}

type editorFlipArgs struct {
	SessionID string `json:"session_id"`
	Direction string `json:"direction"`
}

func (s *Server) handleEditorFlip(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorFlipArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Direction == "" {
		a.Direction = string(imaging.FlipHorizontal)
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.Apply(ctx, imaging.Flip{Direction: imaging.FlipDirection(a.Direction)})
}

func (s *Server) handleEditorUndo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.Undo(ctx)
}

// === Inspection Handlers ===

type editorHistoryArgs struct {
	SessionID       string `json:"session_id"`
	IncludeLocators bool   `json:"include_locators"`
}

func (s *Server) handleEditorHistory(args json.RawMessage) (interface{}, error) {
	var a editorHistoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(a.IncludeLocators), nil
}

type editorSampleColorArgs struct {
	SessionID string `json:"session_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

func (s *Server) handleEditorSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	_, r, err := sess.HeadRaster(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(r, a.X, a.Y)
}
