package leaderboard

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"

	"spinningrats/bot/common"
	"spinningrats/domain/entities"
)

const maxImageNameLength = 18

// column is one column of the ranking table
type column struct {
	header string
	x      float64
	rgb    [3]float64
}

// imageStyle defines the visual style of the ranking image
type imageStyle struct {
	width     int
	minHeight int
	padding   int
	rowHeight int
	podium    [3][4]float64 // gold, silver, bronze row tints
}

// ImageGenerator renders the leaderboard as a PNG table
type ImageGenerator struct {
	style imageStyle
}

// NewImageGenerator creates an image generator with the default style
func NewImageGenerator() *ImageGenerator {
	return &ImageGenerator{
		style: imageStyle{
			width:     360,
			minHeight: 120,
			padding:   15,
			rowHeight: 26,
			podium: [3][4]float64{
				{1, 0.84, 0, 0.1},
				{0.8, 0.8, 0.8, 0.08},
				{0.8, 0.5, 0.2, 0.06},
			},
		},
	}
}

// Generate draws the ranking table for entries
func (g *ImageGenerator) Generate(entries []entities.LeaderboardEntry) ([]byte, error) {
	start := time.Now()
	defer func() {
		log.WithFields(log.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
			"row_count":   len(entries),
		}).Debug("Leaderboard image generation completed")
	}()

	pad := float64(g.style.padding)
	columns := []column{
		{header: "#", x: pad, rgb: [3]float64{0.85, 0.85, 0.9}},
		{header: "Rat", x: pad + 30, rgb: [3]float64{1, 1, 1}},
		{header: "Minutes", x: pad + 190, rgb: [3]float64{1, 0.92, 0.55}},
		{header: "Time", x: pad + 265, rgb: [3]float64{0.85, 0.85, 1}},
	}

	// header band + header padding + rows + bottom padding
	rows := len(entries)
	if rows == 0 {
		rows = 1
	}
	height := 25 + 30 + rows*g.style.rowHeight + 15
	if height < g.style.minHeight {
		height = g.style.minHeight
	}

	dc := gg.NewContext(g.style.width, height)
	dc.SetFillRule(gg.FillRuleWinding)

	grad := gg.NewLinearGradient(0, 0, 0, float64(height))
	grad.AddColorStop(0, rgb(0.02, 0.02, 0.05))
	grad.AddColorStop(1, rgb(0.05, 0.07, 0.15))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(g.style.width), float64(height))
	dc.Fill()

	face, err := loadFont(gomono.TTF, 11)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	rankFace, err := loadFont(gobold.TTF, 9)
	if err != nil {
		return nil, fmt.Errorf("failed to load rank font: %w", err)
	}
	dc.SetFontFace(face)

	y := float64(25)
	dc.SetRGBA(0.3, 0.3, 0.4, 0.4)
	dc.DrawRectangle(0, y-15, float64(g.style.width), 20)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	for _, col := range columns {
		drawSharpText(dc, col.header, col.x, y)
	}

	dc.SetRGBA(0.6, 0.6, 0.7, 0.7)
	dc.SetLineWidth(1)
	dc.DrawLine(0, y+8, float64(g.style.width), y+8)
	dc.Stroke()

	y += 30
	if len(entries) == 0 {
		dc.SetRGB(0.7, 0.7, 0.7)
		text := "No rats have spun yet"
		w, _ := dc.MeasureString(text)
		drawSharpText(dc, text, (float64(g.style.width)-w)/2, y)
	}

	for i, entry := range entries {
		if i < len(g.style.podium) {
			tint := g.style.podium[i]
			dc.SetRGBA(tint[0], tint[1], tint[2], tint[3])
		} else {
			dc.SetRGBA(0.5, 0.5, 0.6, 0.02)
		}
		dc.DrawRectangle(0, y-15, float64(g.style.width), float64(g.style.rowHeight))
		dc.Fill()

		if i < len(g.style.podium) {
			medal := g.style.podium[i]
			dc.SetRGB(medal[0], medal[1], medal[2])
			dc.DrawCircle(columns[0].x+3, y-4, 6)
			dc.Fill()

			dc.SetRGB(0, 0, 0)
			dc.SetFontFace(rankFace)
			dc.DrawStringAnchored(fmt.Sprintf("%d", entry.Rank), columns[0].x+3, y-5, 0.5, 0.4)
			dc.SetFontFace(face)
		} else {
			setColumnColor(dc, columns[0])
			drawSharpText(dc, fmt.Sprintf("%d", entry.Rank), columns[0].x, y)
		}

		cells := []string{
			common.TruncateName(entry.Name, maxImageNameLength),
			common.FormatCount(entry.Minutes),
			common.FormatRatTime(entry.Minutes),
		}
		for j, cell := range cells {
			setColumnColor(dc, columns[j+1])
			drawSharpText(dc, cell, columns[j+1].x, y)
		}

		y += float64(g.style.rowHeight)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	return buf.Bytes(), nil
}

func rgb(r, g, b float64) color.Color {
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}

func setColumnColor(dc *gg.Context, col column) {
	dc.SetRGB(col.rgb[0], col.rgb[1], col.rgb[2])
}

// drawSharpText draws text over a faint offset shadow
func drawSharpText(dc *gg.Context, text string, x, y float64) {
	dc.Push()
	dc.SetRGBA(0, 0, 0, 0.5)
	dc.DrawString(text, x+0.5, y+0.5)
	dc.Pop()

	dc.DrawString(text, x, y)
}

// loadFont loads a font from byte data
func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:       size,
		DPI:        72,
		Hinting:    font.HintingFull,
		SubPixelsX: 4,
		SubPixelsY: 4,
	}), nil
}
