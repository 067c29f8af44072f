package report

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func TestConsensusStyle(t *testing.T) {
	tests := []struct {
		item  domain.ConsensusItem
		label string
		color color.RGBA
	}{
		{domain.ConsensusItem{Confidence: 0.91, IsWindshield: true}, "Windshield 0.91", windshieldColor},
		{domain.ConsensusItem{Confidence: 0.5, IsLight: true}, "Light 0.50", lightColor},
		{domain.ConsensusItem{Confidence: 0.333}, "Damage 0.33", damageColor},
	}

	for _, tt := range tests {
		label, c := ConsensusStyle(tt.item)
		assert.Equal(t, tt.label, label)
		assert.Equal(t, tt.color, c)
	}
}

func TestAnnotate_DrawsBoxOutline(t *testing.T) {
	items := []domain.ConsensusItem{
		{Box: domain.Box{100, 100, 200, 180}, Confidence: 0.8},
		{Box: domain.Box{20, 250, 60, 290}, Confidence: 0.7, IsWindshield: true},
	}

	out := Annotate(grayImage(400, 300), items, 0)

	require.Equal(t, image.Rect(0, 0, 400, 300), out.Bounds())
	// Edges carry the class colour, the inside keeps the photo.
	assert.Equal(t, damageColor, out.RGBAAt(150, 179))
	assert.Equal(t, damageColor, out.RGBAAt(100, 150))
	assert.Equal(t, color.RGBA{128, 128, 128, 128}, out.RGBAAt(150, 150))
	assert.Equal(t, windshieldColor, out.RGBAAt(40, 289))
}

func TestAnnotate_ScalesLargePhotos(t *testing.T) {
	items := []domain.ConsensusItem{{Box: domain.Box{1000, 1000, 2000, 1500}, Confidence: 0.9}}

	out := Annotate(grayImage(4000, 2000), items, 1000)

	require.Equal(t, 1000, out.Bounds().Dx())
	require.Equal(t, 500, out.Bounds().Dy())
	assert.Equal(t, damageColor, out.RGBAAt(400, 374))
}

func TestRenderer_RenderConsensusImage(t *testing.T) {
	var buf bytes.Buffer
	photo := domain.PhotoResult{Consensus: []domain.ConsensusItem{{Box: domain.Box{5, 5, 40, 30}, Confidence: 0.6, IsLight: true}}}

	require.NoError(t, NewRenderer().RenderConsensusImage(&buf, grayImage(64, 48), photo))

	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())

	assert.ErrorIs(t, NewRenderer().RenderConsensusImage(&buf, nil, photo), domain.ErrInvalidImage)
}
