// Package imaging normalises uploaded avatars with libvips.
package imaging

import (
	"fmt"

	"github.com/h2non/bimg"
)

// AvatarSize is the bounding box avatars are fitted into.
const AvatarSize = 512

// Normalizer resizes avatars and strips their metadata.
type Normalizer struct {
	Size    int
	Quality int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{Size: AvatarSize, Quality: 85}
}

// Process fits the image into Size x Size without enlarging it. PNG, GIF
// and WebP keep their format; everything else becomes JPEG.
func (n *Normalizer) Process(data []byte) ([]byte, string, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, "", fmt.Errorf("read image size: %w", err)
	}

	out := outputType(bimg.DetermineImageType(data))
	opts := bimg.Options{
		Type:          out,
		Quality:       n.Quality,
		StripMetadata: true,
	}
	if size.Width > n.Size || size.Height > n.Size {
		opts.Width, opts.Height = fit(size.Width, size.Height, n.Size)
	}

	processed, err := img.Process(opts)
	if err != nil {
		return nil, "", fmt.Errorf("process image: %w", err)
	}
	return processed, ContentType(out), nil
}

func outputType(in bimg.ImageType) bimg.ImageType {
	switch in {
	case bimg.PNG, bimg.GIF, bimg.WEBP:
		return in
	}
	return bimg.JPEG
}

// fit scales w x h down to fit a box x box square, keeping the aspect
// ratio.
func fit(w, h, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		return box, max(1, h*box/w)
	}
	return max(1, w*box/h), box
}

func ContentType(t bimg.ImageType) string {
	switch t {
	case bimg.PNG:
		return "image/png"
	case bimg.GIF:
		return "image/gif"
	case bimg.WEBP:
		return "image/webp"
	}
	return "image/jpeg"
}
