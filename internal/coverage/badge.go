package coverage

import (
	"fmt"
	"os"
)

// Thresholds defines the badge color cutoffs.
type Thresholds struct {
	Red    float64 // 0..Red renders red
	Yellow float64 // Red..Yellow renders yellow, above renders green
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Red: 40, Yellow: 70}
}

// WriteBadge renders an SVG coverage badge to the given path.
func WriteBadge(percent float64, path string, thresholds Thresholds) error {
	if err := os.WriteFile(path, []byte(badgeSVG(percent, thresholds)), 0644); err != nil {
		return fmt.Errorf("writing badge: %w", err)
	}
	return nil
}

// badgeSVG renders a shields.io-compatible badge.
func badgeSVG(percent float64, thresholds Thresholds) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	color := badgeColor(percent, thresholds)
	label := fmt.Sprintf("%.1f%%", percent)

	const (
		leftWidth  = 63
		rightWidth = 48
		height     = 20
	)
	totalWidth := leftWidth + rightWidth

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" role="img" aria-label="coverage: %s">
  <title>coverage: %s</title>
  <g shape-rendering="crispEdges">
    <rect width="%d" height="%d" fill="#555"/>
    <rect x="%d" width="%d" height="%d" fill="%s"/>
  </g>
  <g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
    <text x="%d" y="14">coverage</text>
    <text x="%d" y="14">%s</text>
  </g>
</svg>`,
		totalWidth, height, label, label,
		totalWidth, height,
		leftWidth, rightWidth, height, color,
		leftWidth/2,
		leftWidth+rightWidth/2, label,
	)
}

func badgeColor(percent float64, thresholds Thresholds) string {
	switch {
	case percent >= thresholds.Yellow:
		return "#4c1" // green
	case percent > thresholds.Red:
		return "#dfb317" // yellow
	default:
		return "#e05d44" // red
	}
}
