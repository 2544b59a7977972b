package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by editor_open",
	}
}

func locatorProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Sources
		{
			Name:        "image_register",
			Description: "Register raw image bytes (a file path or base64 data) as a transient blob: handle. Use the handle with editor_open and release it with image_release when done.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to an image file to read",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image bytes (PNG, JPEG, GIF, BMP, TIFF or WebP)",
					},
				},
			},
		},
		{
			Name:        "image_release",
			Description: "Drop a reference to a transient blob: handle. The bytes are freed when the last reference is released.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"locator": locatorProperty("The blob: handle returned by image_register"),
				},
				"required": []string{"locator"},
			},
		},
		{
			Name:        "image_load",
			Description: "Load any image locator (blob: handle, data: URI, http(s) URL, file:// URL or path) and return its natural dimensions and locator kind.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"locator": locatorProperty("Image locator"),
				},
				"required": []string{"locator"},
			},
		},

		// Session Lifecycle
		{
			Name:        "editor_open",
			Description: "Start an editing session on an image. The image becomes the original entry of the session's edit history.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"locator": locatorProperty("Image locator to edit"),
					"lock_aspect_ratio": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep width and height proportional when one is changed. Default false",
						"default":     false,
					},
				},
				"required": []string{"locator"},
			},
		},
		{
			Name:        "editor_save",
			Description: "Save the current image of a session as PNG and end the session. Returns the storage key and URL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_close",
			Description: "End a session without saving and discard its history.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
				},
				"required": []string{"session_id"},
			},
		},

		// Edit Operations
		{
			Name:        "editor_crop",
			Description: "Crop the current image to a rectangle. Areas outside the image stay transparent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x": map[string]interface{}{
						"type":        "number",
						"description": "Left edge (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Top edge (0-based)",
					},
					"width": map[string]interface{}{
						"type":        "number",
						"description": "Crop width",
					},
					"height": map[string]interface{}{
						"type":        "number",
						"description": "Crop height",
					},
					"unit": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"px", "percent"},
						"description": "Unit of x, y, width and height. percent is relative to the current image size. Default px",
						"default":     "px",
					},
				},
				"required": []string{"session_id", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "editor_resize",
			Description: "Resize the current image. Omitted sides come from the session's target dimensions; with the aspect lock on, a single side derives the other.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Target width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Target height in pixels",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_set_dimensions",
			Description: "Adjust the session's target dimensions and aspect lock without editing the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Target width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Target height in pixels",
					},
					"lock_aspect_ratio": map[string]interface{}{
						"type":        "boolean",
						"description": "Turn the aspect lock on or off",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_rotate",
			Description: "Rotate the current image clockwise about its center. The canvas grows to fit every corner; multiples of 90 are lossless.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"degrees": map[string]interface{}{
						"type":        "number",
						"description": "Clockwise angle in degrees. Negative values rotate counter-clockwise",
					},
				},
				"required": []string{"session_id", "degrees"},
			},
		},
		{
			Name:        "editor_flip",
			Description: "Mirror the current image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"horizontal", "vertical"},
						"description": "horizontal mirrors left-right, vertical top-bottom. Default horizontal",
						"default":     "horizontal",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_undo",
			Description: "Revert the most recent edit. The original image cannot be undone.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
				},
				"required": []string{"session_id"},
			},
		},

		// Inspection
		{
			Name:        "editor_history",
			Description: "Get the session state: dimensions, history length and whether undo is possible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"include_locators": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the data: locator of every history entry. Default false",
						"default":     false,
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "editor_sample_color",
			Description: "Get the exact color value at a pixel of the current image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"session_id", "x", "y"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
