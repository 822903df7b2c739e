package ui

import "image/color"

var (
	colBG        = color.RGBA{10, 10, 14, 255}
	colGridLine  = color.RGBA{255, 255, 255, 60}
	colMarker    = color.RGBA{255, 255, 255, 200}
	colThumbEdge = color.RGBA{240, 240, 240, 255}
	colHUD       = color.RGBA{20, 20, 30, 255}
	colError     = color.RGBA{200, 40, 40, 255}
)
