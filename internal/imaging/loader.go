package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ErrUnreadableImage is wrapped by every failure to open or decode a source
// image. It is fatal for that single input only.
var ErrUnreadableImage = errors.New("unreadable image")

// supportedExtensions are the file types batch runs accept.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ImageCache provides thread-safe caching of decoded rasters to avoid
// redundant disk reads.
//
// Rasters are keyed by the exact path string passed to Load. Different paths
// to the same file (relative vs absolute) produce separate entries.
//
// # Memory Management
//
// Cached rasters remain in memory until removed with Evict(). Batch runs
// bypass the cache, since every image is read once.
type ImageCache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		rasters: make(map[string]*Raster),
	}
}

// Load retrieves a raster from the cache or decodes it from disk.
//
// PNG, JPEG, GIF, TIFF and BMP decode; batch folders are still filtered by
// IsSupported. Open and decode failures wrap ErrUnreadableImage.
func (c *ImageCache) Load(path string) (*Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := LoadRaster(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Evict removes a specific raster from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// Len returns the number of cached rasters.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// LoadRaster decodes the image at path without caching.
func LoadRaster(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrUnreadableImage, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrUnreadableImage, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrUnreadableImage, path)
	}
	return NewRaster(img), nil
}

// IsSupported reports whether path has an extension batch runs accept
// (.jpg, .jpeg, .png, case-insensitive).
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Listing is the result of scanning a folder for input images.
type Listing struct {
	// Images holds the accepted files as full paths, sorted by file name.
	Images []string `json:"images"`

	// Skipped holds the names of regular files with unsupported extensions.
	Skipped []string `json:"skipped"`
}

// ListImages scans dir (non-recursively) for supported images.
//
// Subdirectories are ignored. Files are sorted by name so batch runs have a
// reproducible order, which matters because the first calibrated image
// becomes the comparison baseline.
func ListImages(dir string) (*Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	listing := &Listing{
		Images:  make([]string, 0, len(names)),
		Skipped: make([]string, 0),
	}
	for _, name := range names {
		if IsSupported(name) {
			listing.Images = append(listing.Images, filepath.Join(dir, name))
		} else {
			listing.Skipped = append(listing.Skipped, name)
		}
	}
	return listing, nil
}
