package volume

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"

	"imagedataview/pkg/orientation"
)

// LoadSliceDir builds a single-timestep volume from a directory of 2D slice
// images (JPEG or PNG) stored in orientation o.
//
// The slices are ordered by the number embedded in their file names, which
// keeps anatomical order for the usual slice_001.jpg naming. All slices must
// share the dimensions of the first one. Gray levels are scaled to [0, 1].
func LoadSliceDir(dir string, o orientation.Orientation) (*Memory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New("reading slice directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no slice images found").WithTag("dir", dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var vol *Memory
	for s, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.New("loading slice failed").
				WithTag("file", name).
				Wrap(err)
		}

		bounds := img.Bounds()
		if vol == nil {
			vol = NewMemory(Extents{
				Columns:   bounds.Dx(),
				Rows:      bounds.Dy(),
				Slices:    len(files),
				Timesteps: 1,
			}, o)
		} else if bounds.Dx() != vol.ext.Columns || bounds.Dy() != vol.ext.Rows {
			return nil, errors.Newf("slice has %dx%d pixels, expected %dx%d",
				bounds.Dx(), bounds.Dy(), vol.ext.Columns, vol.ext.Rows).
				WithTag("file", name)
		}

		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				vol.Data[vol.Index(x, y, s, 0)] = float64(r) / 65535.0
			}
		}
	}

	logs.WithTag("dir", dir).
		WithTag("slices", len(files)).
		WithTag("columns", vol.ext.Columns).
		WithTag("rows", vol.ext.Rows).
		Info("loaded slice directory")
	return vol, nil
}

// extractNumber extracts the numeric part of a file name, 0 if there is none.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}
