package service

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// PreprocessFile decodes the image at path and converts it to model input.
func PreprocessFile(path string) (Tensor, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %w", ErrPreprocess, err)
	}
	return Preprocess(img)
}

// Preprocess stretches img to ImageSize x ImageSize (nearest neighbour),
// drops alpha and applies caffe normalization: BGR order with the ImageNet
// mean subtracted from 0-255 values.
func Preprocess(img image.Image) (Tensor, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Tensor{}, fmt.Errorf("%w: empty image", ErrPreprocess)
	}
	// imaging.Resize returns a clone when the size already matches.
	resized := imaging.Resize(img, ImageSize, ImageSize, imaging.NearestNeighbor)

	out := make([]float32, ImageSize*ImageSize*Channels)
	i := 0
	for y := 0; y < ImageSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < ImageSize; x++ {
			p := row[x*4 : x*4+4]
			r, g, b := float32(p[0]), float32(p[1]), float32(p[2])
			out[i] = b - CaffeMean[0]
			out[i+1] = g - CaffeMean[1]
			out[i+2] = r - CaffeMean[2]
			i += Channels
		}
	}
	return Tensor{Shape: InputShape(), Data: out}, nil
}
