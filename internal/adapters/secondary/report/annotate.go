package report

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

// maxAnnotatedSide bounds the longer side of rendered photos.
const maxAnnotatedSide = 1280

var (
	windshieldColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	lightColor      = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	damageColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// ConsensusStyle returns the label and box colour of a consensus item.
func ConsensusStyle(item domain.ConsensusItem) (string, color.RGBA) {
	switch {
	case item.IsWindshield:
		return fmt.Sprintf("Windshield %.2f", item.Confidence), windshieldColor
	case item.IsLight:
		return fmt.Sprintf("Light %.2f", item.Confidence), lightColor
	default:
		return fmt.Sprintf("Damage %.2f", item.Confidence), damageColor
	}
}

// Annotate returns a copy of img, scaled down so neither side exceeds maxSide,
// with the consensus boxes and their labels drawn on it.
func Annotate(img image.Image, items []domain.ConsensusItem, maxSide int) *image.RGBA {
	ob := img.Bounds()
	src := fit(img, maxSide)
	sb := src.Bounds()

	dst := image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)

	sx := float64(sb.Dx()) / float64(ob.Dx())
	sy := float64(sb.Dy()) / float64(ob.Dy())
	thickness := max(2, max(sb.Dx(), sb.Dy())/320)

	for _, item := range items {
		label, c := ConsensusStyle(item)
		r := image.Rect(
			int((item.Box[0]-float64(ob.Min.X))*sx),
			int((item.Box[1]-float64(ob.Min.Y))*sy),
			int((item.Box[2]-float64(ob.Min.X))*sx),
			int((item.Box[3]-float64(ob.Min.Y))*sy),
		).Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		drawOutline(dst, r, thickness, c)
		drawLabel(dst, r.Min, label, c)
	}
	return dst
}

// RenderConsensusImage writes the annotated photo as JPEG.
func (r *Renderer) RenderConsensusImage(w io.Writer, img image.Image, photo domain.PhotoResult) error {
	if img == nil || img.Bounds().Empty() {
		return domain.ErrInvalidImage
	}
	return jpeg.Encode(w, Annotate(img, photo.Consensus, maxAnnotatedSide), &jpeg.Options{Quality: 85})
}

func fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Bilinear)
}

func drawOutline(dst draw.Image, r image.Rectangle, t int, c color.Color) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

// drawLabel puts the label above the box, or inside it at the top edge of
// the image.
func drawLabel(dst *image.RGBA, at image.Point, label string, bg color.RGBA) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, label).Ceil() + 6
	h := face.Height + 4

	top := at.Y - h
	if top < 0 {
		top = at.Y
	}
	box := image.Rect(at.X, top, at.X+w, top+h).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	var fg color.Color = color.Black
	if bg == damageColor {
		fg = color.White
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(at.X+3, top+2+face.Ascent),
	}
	d.DrawString(label)
}
