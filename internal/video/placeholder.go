package video

import (
	"image"
	"image/color"
	"image/draw"
)

func placeholderImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{20, 20, 20, 255}}, image.Point{}, draw.Src)
	return img
}
