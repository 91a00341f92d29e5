package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
	"github.com/ironsheep/sheet-calibration-mcp/internal/deskew"
	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
	"github.com/ironsheep/sheet-calibration-mcp/internal/pipeline"
	"github.com/ironsheep/sheet-calibration-mcp/internal/session"
)

// ErrNoSession is returned by tools that need a previous sheet_calibrate
// call on the same path.
var ErrNoSession = errors.New("no calibration session for this image; call sheet_calibrate first")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sheet_calibrate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// sheetSession is what a calibrated image leaves behind for the selection
// and measurement tools.
type sheetSession struct {
	pipeline *pipeline.Pipeline
	outcome  *pipeline.Outcome
	state    session.Session
	result   *calibration.Result
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A pipeline that ends in a failure state is not an execution error: its
// diagnostic is part of the result.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "sheet_calibrate":
		return s.handleSheetCalibrate(args)
	case "sheet_detect":
		return s.handleSheetDetect(args)
	case "sheet_markers":
		return s.handleSheetMarkers(args)
	case "sheet_select_marker":
		return s.handleSheetSelectMarker(args)
	case "sheet_measure_distance":
		return s.handleSheetMeasureDistance(args)
	case "sheet_batch_compare":
		return s.handleSheetBatchCompare(args)
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

// === Pipeline settings ===

// pipelineArgs are the optional per-call overrides of the server config.
type pipelineArgs struct {
	Path             string          `json:"path"`
	MarkerDiameterCM *float64        `json:"marker_diameter_cm"`
	MaxDimension     *int            `json:"max_dimension"`
	Threshold        *int            `json:"threshold"`
	BlurKernel       *int            `json:"blur_kernel"`
	BlurSigma        *float64        `json:"blur_sigma"`
	Hough            json.RawMessage `json:"hough"`
	Reload           bool            `json:"reload"`
}

// settings applies the overrides to a copy of the server config. Hough
// fields left out of the object keep their configured values.
func (a *pipelineArgs) settings(base *config.Config) (*config.Config, error) {
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	c := *base
	if a.MarkerDiameterCM != nil {
		c.MarkerDiameterCM = *a.MarkerDiameterCM
	}
	if a.MaxDimension != nil {
		c.MaxDimension = *a.MaxDimension
	}
	if a.Threshold != nil {
		c.Threshold = *a.Threshold
	}
	if a.BlurKernel != nil {
		c.BlurKernel = *a.BlurKernel
	}
	if a.BlurSigma != nil {
		c.BlurSigma = *a.BlurSigma
	}
	if len(a.Hough) > 0 {
		if err := json.Unmarshal(a.Hough, &c.Hough); err != nil {
			return nil, fmt.Errorf("invalid hough parameters: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Server) newPipeline(c *config.Config, mode pipeline.Mode) *pipeline.Pipeline {
	return pipeline.New(pipeline.OptionsFromConfig(c, mode), s.cache, s.logger)
}

func (s *Server) runSingle(a *pipelineArgs) (*pipeline.Pipeline, *pipeline.Outcome, error) {
	c, err := a.settings(s.cfg)
	if err != nil {
		return nil, nil, err
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	p := s.newPipeline(c, pipeline.ModeSingle)
	return p, p.RunFile(context.Background(), a.Path), nil
}

// === Calibration Handlers ===

type sheetCalibrateArgs struct {
	pipelineArgs
	IncludeImage bool    `json:"include_image"`
	GridStep     float64 `json:"grid_step"`
}

type sheetCalibrateResult struct {
	Path        string                   `json:"path"`
	State       pipeline.State           `json:"state"`
	Diagnostic  *pipeline.Diagnostic     `json:"diagnostic,omitempty"`
	Angle       float64                  `json:"angle"`
	Sheet       *detection.Region        `json:"sheet,omitempty"`
	Markers     []markerInfo             `json:"markers"`
	Selected    int                      `json:"selected"`
	Calibration *calibration.Result      `json:"calibration,omitempty"`
	Backend     string                   `json:"circle_backend"`
	Image       *imaging.AnnotatedResult `json:"image,omitempty"`
}

type markerInfo struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Radius   int `json:"radius"`
	Diameter int `json:"diameter"`
}

func markerInfos(markers []detection.Marker) []markerInfo {
	out := make([]markerInfo, len(markers))
	for i, m := range markers {
		out[i] = markerInfo{X: m.Center.X, Y: m.Center.Y, Radius: m.Radius, Diameter: m.Diameter()}
	}
	return out
}

func (s *Server) handleSheetCalibrate(args json.RawMessage) (interface{}, error) {
	var a sheetCalibrateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, o, err := s.runSingle(&a.pipelineArgs)
	if err != nil {
		return nil, err
	}

	res := &sheetCalibrateResult{
		Path:        a.Path,
		State:       o.State,
		Diagnostic:  o.Diagnostic(),
		Sheet:       o.Sheet,
		Markers:     markerInfos(o.Markers),
		Selected:    o.Primary,
		Calibration: o.Calibration,
		Backend:     p.Backend(),
	}
	if o.Deskew != nil {
		res.Angle = o.Deskew.Angle
	}

	if o.Calibration == nil {
		s.dropSession(a.Path)
		return res, nil
	}

	sess := &sheetSession{
		pipeline: p,
		outcome:  o,
		state:    session.New(o.SheetRaster, o.Markers),
		result:   o.Calibration,
	}
	s.mu.Lock()
	s.sessions[a.Path] = sess
	s.mu.Unlock()

	if a.IncludeImage {
		img, err := renderSession(sess, a.GridStep)
		if err != nil {
			return nil, err
		}
		res.Image = img
	}
	return res, nil
}

// renderSession draws the markers and, when gridStep > 0, a physical grid
// anchored on the sheet's top-left corner.
func renderSession(sess *sheetSession, gridStep float64) (*imaging.AnnotatedResult, error) {
	img, err := sess.state.Render(imaging.DefaultStyle())
	if err != nil {
		return nil, err
	}
	if gridStep > 0 {
		err := imaging.DrawScaleGrid(img, imaging.GridOptions{
			PixelsPerUnit: 1 / sess.result.ScaleFactor,
			Step:          gridStep,
			Labels:        true,
		})
		if err != nil {
			return nil, err
		}
	}
	return imaging.EncodePNG(img)
}

type sheetDetectResult struct {
	Path       string               `json:"path"`
	State      pipeline.State       `json:"state"`
	Diagnostic *pipeline.Diagnostic `json:"diagnostic,omitempty"`
	Region     *detection.Region    `json:"region,omitempty"`
	RawAngle   float64              `json:"raw_angle"`
	Angle      float64              `json:"angle"`
	Sheet      *detection.Region    `json:"sheet,omitempty"`

	// SourceCorners are the re-detected sheet corners mapped back into the
	// resized input, clockwise from top-left.
	SourceCorners []sourcePoint `json:"source_corners,omitempty"`
}

type sourcePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// sourceCorners maps the corners of sheet through the inverse rotation.
func sourceCorners(res *deskew.Result, sheet *detection.Region) ([]sourcePoint, error) {
	b := sheet.Bounds()
	corners := []image.Point{b.Min, {X: b.Max.X, Y: b.Min.Y}, b.Max, {X: b.Min.X, Y: b.Max.Y}}
	out := make([]sourcePoint, 0, len(corners))
	for _, c := range corners {
		x, y, err := res.ToSource(float64(c.X), float64(c.Y))
		if err != nil {
			return nil, err
		}
		out = append(out, sourcePoint{X: x, Y: y})
	}
	return out, nil
}

func (s *Server) handleSheetDetect(args json.RawMessage) (interface{}, error) {
	var a pipelineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, o, err := s.runSingle(&a)
	if err != nil {
		return nil, err
	}

	res := &sheetDetectResult{Path: a.Path, State: o.State, Region: o.Region, Sheet: o.Sheet}
	if o.Deskew != nil {
		res.RawAngle = o.Deskew.RawAngle
		res.Angle = o.Deskew.Angle
	}
	// Marker failures are not detection failures.
	if o.Sheet == nil {
		res.Diagnostic = o.Diagnostic()
		return res, nil
	}
	if res.SourceCorners, err = sourceCorners(o.Deskew, o.Sheet); err != nil {
		return nil, err
	}
	return res, nil
}

type sheetMarkersResult struct {
	Path       string               `json:"path"`
	State      pipeline.State       `json:"state"`
	Diagnostic *pipeline.Diagnostic `json:"diagnostic,omitempty"`
	Markers    []markerInfo         `json:"markers"`
	Primary    int                  `json:"primary"`
}

func (s *Server) handleSheetMarkers(args json.RawMessage) (interface{}, error) {
	var a pipelineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, o, err := s.runSingle(&a)
	if err != nil {
		return nil, err
	}
	primary := -1
	if len(o.Markers) > 0 {
		primary = 0
	}
	return &sheetMarkersResult{
		Path:       a.Path,
		State:      o.State,
		Diagnostic: o.Diagnostic(),
		Markers:    markerInfos(o.Markers),
		Primary:    primary,
	}, nil
}

// === Session Handlers ===

func (s *Server) lookupSession(path string) (*sheetSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, path)
	}
	return sess, nil
}

func (s *Server) dropSession(path string) {
	s.mu.Lock()
	delete(s.sessions, path)
	s.mu.Unlock()
}

type sheetSelectMarkerArgs struct {
	Path         string `json:"path"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	IncludeImage bool   `json:"include_image"`
}

type sheetSelectMarkerResult struct {
	Changed     bool                     `json:"changed"`
	Selected    int                      `json:"selected"`
	Marker      *markerInfo              `json:"marker,omitempty"`
	Calibration *calibration.Result      `json:"calibration"`
	Image       *imaging.AnnotatedResult `json:"image,omitempty"`
}

func (s *Server) handleSheetSelectMarker(args json.RawMessage) (interface{}, error) {
	var a sheetSelectMarkerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[a.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, a.Path)
	}

	next, changed := session.HandleClick(sess.state, image.Pt(a.X, a.Y))
	if changed {
		res, err := sess.pipeline.RecalibrateWith(sess.outcome, next.Selected)
		if err != nil {
			return nil, err
		}
		sess.state = next
		sess.result = res
	}

	out := &sheetSelectMarkerResult{
		Changed:     changed,
		Selected:    sess.state.Selected,
		Calibration: sess.result,
	}
	if m, ok := sess.state.SelectedMarker(); ok {
		info := markerInfos([]detection.Marker{m})[0]
		out.Marker = &info
	}
	if a.IncludeImage {
		img, err := renderSession(sess, 0)
		if err != nil {
			return nil, err
		}
		out.Image = img
	}
	return out, nil
}

type sheetMeasureDistanceArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
}

func (s *Server) handleSheetMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a sheetMeasureDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.lookupSession(a.Path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	res := sess.result
	s.mu.Unlock()
	return imaging.MeasureDistance(image.Pt(a.X1, a.Y1), image.Pt(a.X2, a.Y2), res.ScaleFactor, res.Unit), nil
}

// === Batch Handlers ===

type sheetBatchCompareArgs struct {
	Dir              string   `json:"dir"`
	Margin           *float64 `json:"margin"`
	CompareBy        string   `json:"compare_by"`
	Workers          *int     `json:"workers"`
	MarkerDiameterCM *float64 `json:"marker_diameter_cm"`
	MaxDimension     *int     `json:"max_dimension"`
}

func (s *Server) handleSheetBatchCompare(args json.RawMessage) (interface{}, error) {
	var a sheetBatchCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Dir == "" {
		return nil, errors.New("dir is required")
	}

	c := *s.cfg
	if a.Margin != nil {
		c.Margin = *a.Margin
	}
	if a.CompareBy != "" {
		c.CompareBy = a.CompareBy
	}
	if a.Workers != nil {
		c.Workers = *a.Workers
	}
	if a.MarkerDiameterCM != nil {
		c.MarkerDiameterCM = *a.MarkerDiameterCM
	}
	if a.MaxDimension != nil {
		c.MaxDimension = *a.MaxDimension
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	criterion, err := calibration.ParseCriterion(c.CompareBy)
	if err != nil {
		return nil, err
	}

	b := &pipeline.Batch{
		Pipeline:  pipeline.New(pipeline.OptionsFromConfig(&c, pipeline.ModeBatch), nil, s.logger),
		Margin:    c.Margin,
		Criterion: criterion,
		Workers:   c.Workers,
		Logger:    s.logger,
	}
	return b.Run(context.Background(), a.Dir)
}
