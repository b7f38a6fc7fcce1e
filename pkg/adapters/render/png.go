// Package render turns flow snapshots into visual artifacts: a PNG canvas
// and a Mermaid flowchart.
package render

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/geometry"
	"github.com/aretw0/espalier/pkg/ports"
)

const (
	nodeWidth  = 220.0
	nodeHeight = 110.0
	margin     = 60.0
	cornerR    = 10.0
)

// PNGExporter renders a flow as a raster image. The zero value renders at
// 1:1 logical scale.
type PNGExporter struct {
	// Scale multiplies logical units into pixels; values <= 0 mean 1.0.
	Scale float64
}

// Format implements ports.FlowExporter.
func (PNGExporter) Format() ports.ExportFormat { return ports.ExportPNG }

// Export implements ports.FlowExporter.
func (e PNGExporter) Export(ctx context.Context, flow *domain.Flow, w io.Writer) error {
	scale := e.Scale
	if scale <= 0 {
		scale = 1.0
	}

	minX, minY, maxX, maxY := bounds(flow)
	width := int(math.Ceil((maxX - minX + 2*margin) * scale))
	height := int(math.Ceil((maxY - minY + 2*margin) * scale))

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()
	dc.Scale(scale, scale)
	dc.Translate(margin-minX, margin-minY)

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("render: parse font: %w", err)
	}
	titleFace := truetype.NewFace(ttf, &truetype.Options{Size: 14, DPI: 72, Hinting: font.HintingFull})
	labelFace := truetype.NewFace(ttf, &truetype.Options{Size: 11, DPI: 72, Hinting: font.HintingFull})

	byID := make(map[string]*domain.Node, len(flow.Nodes))
	for _, n := range flow.Nodes {
		byID[n.ID] = n
	}

	// Edges first so nodes paint over them.
	for _, edge := range flow.Edges {
		src, ok := byID[edge.Source]
		if !ok {
			continue
		}
		dst, ok := byID[edge.Target]
		if !ok {
			continue
		}
		drawEdge(dc, labelFace, edge, src, dst)
	}

	for _, node := range flow.Nodes {
		drawNode(dc, titleFace, labelFace, node)
	}

	return dc.EncodePNG(w)
}

func bounds(flow *domain.Flow) (minX, minY, maxX, maxY float64) {
	if len(flow.Nodes) == 0 {
		return 0, 0, nodeWidth, nodeHeight
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range flow.Nodes {
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+nodeWidth)
		maxY = math.Max(maxY, n.Position.Y+nodeHeight)
	}
	return minX, minY, maxX, maxY
}

func drawEdge(dc *gg.Context, face font.Face, edge *domain.Edge, src, dst *domain.Node) {
	from := geometry.Point{X: src.Position.X + nodeWidth, Y: src.Position.Y + nodeHeight/2}
	to := geometry.Point{X: dst.Position.X, Y: dst.Position.Y + nodeHeight/2}

	curve := geometry.ConnectionPath(from, to)
	points := curve.Flatten(24)

	dc.SetHexColor("#8a93a6")
	dc.SetLineWidth(1.5)
	dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()

	drawArrowHead(dc, points[len(points)-2], points[len(points)-1])

	if edge.Label != "" {
		mid := curve.Midpoint()
		dc.SetFontFace(face)
		tw, th := dc.MeasureString(edge.Label)
		dc.SetHexColor("#ffffff")
		dc.DrawRectangle(mid.X-tw/2-3, mid.Y-th/2-2, tw+6, th+4)
		dc.Fill()
		dc.SetHexColor("#4a5160")
		dc.DrawStringAnchored(edge.Label, mid.X, mid.Y, 0.5, 0.35)
	}
}

func drawArrowHead(dc *gg.Context, prev, tip geometry.Point) {
	angle := math.Atan2(tip.Y-prev.Y, tip.X-prev.X)
	size := 8.0
	dc.SetHexColor("#8a93a6")
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(tip.X-size*math.Cos(angle-0.45), tip.Y-size*math.Sin(angle-0.45))
	dc.LineTo(tip.X-size*math.Cos(angle+0.45), tip.Y-size*math.Sin(angle+0.45))
	dc.ClosePath()
	dc.Fill()
}

func drawNode(dc *gg.Context, titleFace, bodyFace font.Face, node *domain.Node) {
	fill, stroke, text := nodeColors(node)

	x, y := node.Position.X, node.Position.Y
	dc.SetHexColor(fill)
	dc.DrawRoundedRectangle(x, y, nodeWidth, nodeHeight, cornerR)
	dc.Fill()
	dc.SetHexColor(stroke)
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(x, y, nodeWidth, nodeHeight, cornerR)
	dc.Stroke()

	title := node.Title
	if title == "" {
		title = node.ID
	}
	dc.SetHexColor(text)
	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(title, x+nodeWidth/2, y+18, 0.5, 0.35)

	body := node.Question
	if node.IsMessage() {
		body = node.Message
	}
	if body != "" {
		dc.SetFontFace(bodyFace)
		dc.DrawStringWrapped(body, x+nodeWidth/2, y+nodeHeight/2+8, 0.5, 0.5,
			nodeWidth-20, 1.3, gg.AlignCenter)
	}
}

func nodeColors(node *domain.Node) (fill, stroke, text string) {
	switch {
	case node.IsQuestion():
		fill, stroke, text = "#eef4ff", "#3b6fd4", "#1d2433"
	case node.Severity == "warning":
		fill, stroke, text = "#fff7e6", "#d48806", "#1d2433"
	case node.Severity == "error":
		fill, stroke, text = "#fff1f0", "#cf1322", "#1d2433"
	default:
		fill, stroke, text = "#f0fbf4", "#2f9e5f", "#1d2433"
	}
	if ap := node.Appearance; ap != nil {
		if ap.Fill != "" {
			fill = ap.Fill
		}
		if ap.Stroke != "" {
			stroke = ap.Stroke
		}
		if ap.Text != "" {
			text = ap.Text
		}
	}
	return fill, stroke, text
}
