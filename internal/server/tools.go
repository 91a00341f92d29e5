package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pipelineProperties are the optional overrides shared by the single-image
// tools.
func pipelineProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the photograph of the sheet",
		},
		"marker_diameter_cm": map[string]interface{}{
			"type":        "number",
			"description": "Known physical diameter of the reference marker in cm. Default 0.55",
		},
		"max_dimension": map[string]interface{}{
			"type":        "integer",
			"description": "Resize so the governing side equals this many pixels before processing; 0 keeps the original size. Default 800",
		},
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Binarization level 0-255; brighter pixels belong to the sheet. Default 128",
		},
		"blur_kernel": map[string]interface{}{
			"type":        "integer",
			"description": "Odd Gaussian kernel size applied before circle detection. Default 9",
		},
		"blur_sigma": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian sigma. Default 2",
		},
		"reload": map[string]interface{}{
			"type":        "boolean",
			"description": "Decode the file again instead of using the cached image",
		},
		"hough": map[string]interface{}{
			"type":        "object",
			"description": "Circle detector tolerances; omitted fields keep their defaults",
			"properties": map[string]interface{}{
				"dp":         map[string]interface{}{"type": "number", "description": "Inverse accumulator resolution. Default 1"},
				"min_dist":   map[string]interface{}{"type": "number", "description": "Minimum distance between marker centres in pixels. Default 50"},
				"param1":     map[string]interface{}{"type": "number", "description": "Canny high threshold. Default 255"},
				"param2":     map[string]interface{}{"type": "number", "description": "Accumulator vote threshold. Default 13"},
				"min_radius": map[string]interface{}{"type": "integer", "description": "Smallest marker radius in pixels. Default 1"},
				"max_radius": map[string]interface{}{"type": "integer", "description": "Largest marker radius in pixels. Default 50"},
			},
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Calibration
		{
			Name:        "sheet_calibrate",
			Description: "Find the white reference sheet in a photograph, deskew it, detect its circular markers and derive the pixel to cm scale from the primary marker. Returns the sheet size in cm, marker offsets and aspect ratio. Starts a session used by sheet_select_marker and sheet_measure_distance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(pipelineProperties(), map[string]interface{}{
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the cropped sheet with markers drawn (primary in blue) as base64 PNG. Default false",
						"default":     false,
					},
					"grid_step": map[string]interface{}{
						"type":        "number",
						"description": "When include_image is set, overlay a grid every grid_step cm from the sheet's top-left corner",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_detect",
			Description: "Locate the sheet and report its bounding box before and after deskewing, with the rotation applied.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": pipelineProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "sheet_markers",
			Description: "List the circular markers found on the deskewed sheet, in sheet coordinates, ordered top to bottom then left to right. The first is the primary marker.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": pipelineProperties(),
				"required":   []string{"path"},
			},
		},

		// Session
		{
			Name:        "sheet_select_marker",
			Description: "Select the calibration marker by clicking at a point of the cropped sheet and recalibrate with it. A point outside every marker keeps the current selection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path previously passed to sheet_calibrate",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate in the cropped sheet",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate in the cropped sheet",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the re-annotated sheet as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "sheet_measure_distance",
			Description: "Measure the distance between two points of the cropped sheet in pixels and in cm, using the session's calibration.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path previously passed to sheet_calibrate",
					},
					"x1": map[string]interface{}{"type": "integer", "description": "First point X"},
					"y1": map[string]interface{}{"type": "integer", "description": "First point Y"},
					"x2": map[string]interface{}{"type": "integer", "description": "Second point X"},
					"y2": map[string]interface{}{"type": "integer", "description": "Second point Y"},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Batch
		{
			Name:        "sheet_batch_compare",
			Description: "Calibrate every .jpg/.jpeg/.png in a folder and compare each sheet with the first calibrated one. Sheets with more than one marker are rejected as ambiguous; if the first image is ambiguous the batch stops.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder",
					},
					"margin": map[string]interface{}{
						"type":        "number",
						"description": "Ratio tolerance; values beyond baseline*margin or below baseline/margin are flagged. Default 1.2",
					},
					"compare_by": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"ratio", "size"},
						"description": "Compare aspect ratios or physical sheet sizes. Default ratio",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Images processed in parallel. Default 1",
					},
					"marker_diameter_cm": map[string]interface{}{
						"type":        "number",
						"description": "Known marker diameter in cm. Default 0.55",
					},
					"max_dimension": map[string]interface{}{
						"type":        "integer",
						"description": "Resize bound before processing. Default 800",
					},
				},
				"required": []string{"dir"},
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
