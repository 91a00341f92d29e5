package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// createSheetImageFile writes a black canvas with a white sheet covering
// sheet (Max exclusive) and black markers of the given radius, and returns
// its path.
func createSheetImageFile(t *testing.T, dir, name string, width, height int, sheet image.Rectangle, radius int, centres ...image.Point) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if image.Pt(x, y).In(sheet) {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	for _, p := range centres {
		for y := p.Y - radius; y <= p.Y+radius; y++ {
			for x := p.X - radius; x <= p.X+radius; x++ {
				dx, dy := x-p.X, y-p.Y
				if dx*dx+dy*dy <= radius*radius {
					img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
				}
			}
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// twoMarkerSheet has a 300x200 sheet at (50,50) with markers at sheet
// coordinates (70,50) and (230,150).
func twoMarkerSheet(t *testing.T, dir string) string {
	return createSheetImageFile(t, dir, "sheet.png", 400, 300, image.Rect(50, 50, 350, 250), 12,
		image.Pt(120, 100), image.Pt(280, 200))
}

// callTool runs a tools/call request and decodes the text content.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()

	paramsJSON, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	return out, nil
}

func TestSheetCalibrate(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	out, mcpErr := callTool(t, s, "sheet_calibrate", map[string]interface{}{
		"path":          path,
		"max_dimension": 0,
		"include_image": true,
		"grid_step":     1,
	})
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}

	if out["state"] != "calibrated" {
		t.Fatalf("state: got %v (%v)", out["state"], out["diagnostic"])
	}
	markers, _ := out["markers"].([]interface{})
	if len(markers) != 2 {
		t.Fatalf("markers: got %d, want 2", len(markers))
	}
	if out["selected"] != float64(0) {
		t.Errorf("selected: got %v, want 0", out["selected"])
	}

	cal, ok := out["calibration"].(map[string]interface{})
	if !ok {
		t.Fatal("calibration missing")
	}
	if cal["unit"] != "cm" {
		t.Errorf("unit: got %v", cal["unit"])
	}
	if ratio := cal["aspect_ratio"].(float64); math.Abs(ratio-1.5) > 1e-9 {
		t.Errorf("aspect_ratio: got %v, want 1.5", ratio)
	}

	img, ok := out["image"].(map[string]interface{})
	if !ok {
		t.Fatal("image missing")
	}
	if img["mime_type"] != "image/png" || img["image_base64"] == "" {
		t.Errorf("image: %v", img["mime_type"])
	}
	if img["width"] != float64(300) || img["height"] != float64(200) {
		t.Errorf("image size: %vx%v, want the cropped sheet 300x200", img["width"], img["height"])
	}
}

func TestSheetCalibrate_FailureIsDiagnostic(t *testing.T) {
	s := New(nil, nil)
	dir := t.TempDir()
	path := createSheetImageFile(t, dir, "black.png", 100, 80, image.Rectangle{}, 0)

	out, mcpErr := callTool(t, s, "sheet_calibrate", map[string]interface{}{"path": path})
	if mcpErr != nil {
		t.Fatalf("pipeline failure should not be a tool error: %+v", mcpErr)
	}
	if out["state"] != "no_rectangle" {
		t.Errorf("state: got %v", out["state"])
	}
	diag, ok := out["diagnostic"].(map[string]interface{})
	if !ok || diag["kind"] != "NoRectangleFound" {
		t.Errorf("diagnostic: got %v", out["diagnostic"])
	}

	// No session is left for a failed run.
	if _, mcpErr := callTool(t, s, "sheet_measure_distance", map[string]interface{}{"path": path}); mcpErr == nil {
		t.Error("measure on a failed image should fail")
	}
}

func TestSheetCalibrate_InvalidArguments(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"threshold out of range", map[string]interface{}{"path": path, "threshold": 300}},
		{"even blur kernel", map[string]interface{}{"path": path, "blur_kernel": 4}},
		{"bad hough radius", map[string]interface{}{"path": path, "hough": map[string]interface{}{"min_radius": 20, "max_radius": 10}}},
		{"zero marker diameter", map[string]interface{}{"path": path, "marker_diameter_cm": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mcpErr := callTool(t, s, "sheet_calibrate", tt.args)
			if mcpErr == nil {
				t.Fatal("expected an error")
			}
			if mcpErr.Code != -32000 {
				t.Errorf("code: got %d, want -32000", mcpErr.Code)
			}
		})
	}
}

func TestSheetCalibrate_UnreadableImage(t *testing.T) {
	s := New(nil, nil)
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	out, mcpErr := callTool(t, s, "sheet_calibrate", map[string]interface{}{"path": path})
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}
	diag, _ := out["diagnostic"].(map[string]interface{})
	if diag["kind"] != "UnreadableImage" {
		t.Errorf("diagnostic: got %v", out["diagnostic"])
	}
}

func TestSheetSelectMarker(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	if _, mcpErr := callTool(t, s, "sheet_select_marker", map[string]interface{}{"path": path, "x": 230, "y": 150}); mcpErr == nil {
		t.Fatal("select without a session should fail")
	}

	if _, mcpErr := callTool(t, s, "sheet_calibrate", map[string]interface{}{"path": path, "max_dimension": 0}); mcpErr != nil {
		t.Fatalf("calibrate failed: %+v", mcpErr)
	}

	out, mcpErr := callTool(t, s, "sheet_select_marker", map[string]interface{}{"path": path, "x": 231, "y": 149, "include_image": true})
	if mcpErr != nil {
		t.Fatalf("select failed: %+v", mcpErr)
	}
	if out["changed"] != true || out["selected"] != float64(1) {
		t.Errorf("selection: changed=%v selected=%v", out["changed"], out["selected"])
	}
	cal := out["calibration"].(map[string]interface{})
	offset := cal["marker_offset_pixels"].(map[string]interface{})
	if math.Abs(offset["x"].(float64)-230) > 1 || math.Abs(offset["y"].(float64)-150) > 1 {
		t.Errorf("offset after selection: got %v, want ~(230,150)", offset)
	}
	if out["image"] == nil {
		t.Error("image requested but missing")
	}

	// A click on empty sheet keeps the selection.
	out, mcpErr = callTool(t, s, "sheet_select_marker", map[string]interface{}{"path": path, "x": 5, "y": 190})
	if mcpErr != nil {
		t.Fatalf("select failed: %+v", mcpErr)
	}
	if out["changed"] != false || out["selected"] != float64(1) {
		t.Errorf("miss: changed=%v selected=%v", out["changed"], out["selected"])
	}
}

func TestSheetMeasureDistance(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	cal, mcpErr := callTool(t, s, "sheet_calibrate", map[string]interface{}{"path": path, "max_dimension": 0})
	if mcpErr != nil {
		t.Fatalf("calibrate failed: %+v", mcpErr)
	}
	scale := cal["calibration"].(map[string]interface{})["scale_factor"].(float64)

	out, mcpErr := callTool(t, s, "sheet_measure_distance", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 30, "y2": 40,
	})
	if mcpErr != nil {
		t.Fatalf("measure failed: %+v", mcpErr)
	}
	if out["distance_pixels"] != float64(50) {
		t.Errorf("distance_pixels: got %v, want 50", out["distance_pixels"])
	}
	if got := out["distance_physical"].(float64); math.Abs(got-50*scale) > 0.001 {
		t.Errorf("distance_physical: got %v, want %v", got, 50*scale)
	}
	if out["unit"] != "cm" {
		t.Errorf("unit: got %v", out["unit"])
	}
}

func TestSheetDetect(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	out, mcpErr := callTool(t, s, "sheet_detect", map[string]interface{}{"path": path, "max_dimension": 0})
	if mcpErr != nil {
		t.Fatalf("detect failed: %+v", mcpErr)
	}
	sheet, ok := out["sheet"].(map[string]interface{})
	if !ok {
		t.Fatal("sheet missing")
	}
	size := sheet["size"].(map[string]interface{})
	if size["width"] != float64(300) || size["height"] != float64(200) {
		t.Errorf("sheet size: %v", size)
	}
	if _, ok := sheet["Contour"]; ok {
		t.Error("contour should not be serialized")
	}
	if out["angle"] != float64(0) {
		t.Errorf("angle: got %v, want 0", out["angle"])
	}
	if out["diagnostic"] != nil {
		t.Errorf("unexpected diagnostic: %v", out["diagnostic"])
	}

	corners, ok := out["source_corners"].([]interface{})
	if !ok || len(corners) != 4 {
		t.Fatalf("source_corners: %v", out["source_corners"])
	}
	want := [][2]float64{{50, 50}, {350, 50}, {350, 250}, {50, 250}}
	for i, c := range corners {
		p := c.(map[string]interface{})
		x, y := p["x"].(float64), p["y"].(float64)
		if math.Abs(x-want[i][0]) > 1e-6 || math.Abs(y-want[i][1]) > 1e-6 {
			t.Errorf("corner %d: got (%g, %g), want %v", i, x, y, want[i])
		}
	}
}

func TestSheetDetect_Reload(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	args := map[string]interface{}{"path": path, "max_dimension": 0}
	if _, mcpErr := callTool(t, s, "sheet_detect", args); mcpErr != nil {
		t.Fatalf("detect failed: %+v", mcpErr)
	}
	first, err := s.cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	args["reload"] = true
	if _, mcpErr := callTool(t, s, "sheet_detect", args); mcpErr != nil {
		t.Fatalf("reload failed: %+v", mcpErr)
	}
	second, err := s.cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("reload should decode the file again")
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache holds %d rasters, want 1", s.cache.Len())
	}
}

func TestSheetMarkers(t *testing.T) {
	s := New(nil, nil)
	path := twoMarkerSheet(t, t.TempDir())

	out, mcpErr := callTool(t, s, "sheet_markers", map[string]interface{}{
		"path":          path,
		"max_dimension": 0,
		"hough":         map[string]interface{}{"max_radius": 30},
	})
	if mcpErr != nil {
		t.Fatalf("markers failed: %+v", mcpErr)
	}
	markers := out["markers"].([]interface{})
	if len(markers) != 2 {
		t.Fatalf("markers: got %d, want 2", len(markers))
	}
	first := markers[0].(map[string]interface{})
	if math.Abs(first["y"].(float64)-50) > 1 {
		t.Errorf("first marker should be the upper one, got %v", first)
	}
	if out["primary"] != float64(0) {
		t.Errorf("primary: got %v", out["primary"])
	}
}

func TestSheetBatchCompare(t *testing.T) {
	s := New(nil, nil)
	dir := t.TempDir()
	createSheetImageFile(t, dir, "a.png", 230, 180, image.Rect(40, 40, 190, 140), 10, image.Pt(115, 90))
	createSheetImageFile(t, dir, "b.png", 270, 180, image.Rect(40, 40, 230, 140), 10, image.Pt(135, 90))
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	out, mcpErr := callTool(t, s, "sheet_batch_compare", map[string]interface{}{
		"dir":           dir,
		"max_dimension": 0,
		"workers":       2,
	})
	if mcpErr != nil {
		t.Fatalf("batch failed: %+v", mcpErr)
	}

	entries := out["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	a := entries[0].(map[string]interface{})
	b := entries[1].(map[string]interface{})
	if a["baseline"] != true {
		t.Errorf("a.png should be the baseline: %v", a)
	}
	if b["verdict"] != "too_large" {
		t.Errorf("b.png verdict: got %v, want too_large", b["verdict"])
	}
	skipped := out["skipped"].([]interface{})
	if len(skipped) != 1 || skipped[0] != "readme.md" {
		t.Errorf("skipped: %v", skipped)
	}
}

func TestSheetBatchCompare_InvalidArguments(t *testing.T) {
	s := New(nil, nil)

	tests := []map[string]interface{}{
		{},
		{"dir": t.TempDir(), "compare_by": "area"},
		{"dir": t.TempDir(), "margin": 0.5},
		{"dir": t.TempDir(), "workers": 0},
		{"dir": filepath.Join(t.TempDir(), "missing")},
	}
	for _, args := range tests {
		if _, mcpErr := callTool(t, s, "sheet_batch_compare", args); mcpErr == nil {
			t.Errorf("args %v: expected an error", args)
		}
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(nil, nil)
	_, mcpErr := callTool(t, s, "sheet_rotate", map[string]interface{}{})
	if mcpErr == nil || mcpErr.Code != -32000 {
		t.Errorf("unknown tool: got %+v, want -32000", mcpErr)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil, nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}
