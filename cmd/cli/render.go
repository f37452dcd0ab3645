package main

import (
	"fmt"

	"taskquest/domain/metrics"

	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
)

// hintColors maps threshold-table color hints to terminal colors
var hintColors = map[string]*color.Color{
	"green":  color.New(color.FgGreen, color.Bold),
	"blue":   color.New(color.FgBlue, color.Bold),
	"yellow": color.New(color.FgYellow, color.Bold),
	"orange": color.New(color.FgHiRed),
	"red":    color.New(color.FgRed, color.Bold),
}

func setColor(enabled bool) {
	color.NoColor = !enabled
}

// paint colors s by hint; unknown hints print plain
func paint(hint, s string) string {
	if c, ok := hintColors[hint]; ok {
		return c.Sprint(s)
	}
	return s
}

func paintTrend(t metrics.TrendResult) string {
	label := fmt.Sprintf("%s %+.1f%%", t.Direction, t.Magnitude)
	switch t.Direction {
	case metrics.Improving:
		return paint("green", label)
	case metrics.Declining:
		return paint("red", label)
	}
	return label
}

func paintPriority(p metrics.Priority) string {
	switch p {
	case metrics.PriorityHigh:
		return paint("red", string(p))
	case metrics.PriorityMedium:
		return paint("yellow", string(p))
	}
	return string(p)
}

func chart(values []float64, height int, caption string) string {
	if height < 2 {
		height = 2
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	)
}
