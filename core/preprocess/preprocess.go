// Package preprocess converts pictures into the normalized channel tensors
// vision-language models take as input.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultPatchSize is the side of the square patch fed to the vision encoder.
const DefaultPatchSize = 378

var (
	// DefaultMean and DefaultStd map [0,1] channel values to [-1,1].
	DefaultMean = []float64{0.5, 0.5, 0.5}
	DefaultStd  = []float64{0.5, 0.5, 0.5}
)

// Normalize returns (pixel - mean[c]) / std[c] for every value of channel c.
// The input is indexed [channel][row][column] and is not modified. Nil mean
// or std use the defaults.
func Normalize(img [][][]float64, mean, std []float64) ([][][]float64, error) {
	if mean == nil {
		mean = DefaultMean
	}
	if std == nil {
		std = DefaultStd
	}
	if len(mean) < len(img) || len(std) < len(img) {
		return nil, fmt.Errorf("preprocess: %d channels but %d means and %d stds", len(img), len(mean), len(std))
	}

	out := make([][][]float64, len(img))
	for c, channel := range img {
		if std[c] == 0 {
			return nil, fmt.Errorf("preprocess: zero std for channel %d", c)
		}
		out[c] = make([][]float64, len(channel))
		for y, row := range channel {
			out[c][y] = make([]float64, len(row))
			for x, pixel := range row {
				out[c][y][x] = (pixel - mean[c]) / std[c]
			}
		}
	}
	return out, nil
}

// CreatePatches resizes img to patchSize x patchSize and returns its RGB
// channels scaled to [0,1] and normalized with the default mean and std.
// A non-positive patchSize means DefaultPatchSize.
func CreatePatches(img image.Image, patchSize int) ([][][]float64, error) {
	if img == nil {
		return nil, errors.New("preprocess: nil image")
	}
	if patchSize <= 0 {
		patchSize = DefaultPatchSize
	}

	var pixels *image.NRGBA
	if bounds := img.Bounds(); bounds.Dx() == patchSize && bounds.Dy() == patchSize {
		pixels = imaging.Clone(img)
	} else {
		pixels = imaging.Resize(img, patchSize, patchSize, imaging.Lanczos)
	}

	channels := make([][][]float64, 3)
	for c := range channels {
		channels[c] = make([][]float64, patchSize)
		for y := range patchSize {
			row := make([]float64, patchSize)
			offset := y * pixels.Stride
			for x := range patchSize {
				row[x] = float64(pixels.Pix[offset+x*4+c]) / 255.0
			}
			channels[c][y] = row
		}
	}
	return Normalize(channels, nil, nil)
}
