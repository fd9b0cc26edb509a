package ui

// layoutRect resolves v against its parent's rect.
func layoutRect(v *View, parent Rect) Rect {
	x, w := layoutAxis(parent.X, parent.W, v.Offset.X(), v.Size.X(), v.Pivot.X(),
		hAnchor(v.AlignH), v.AlignH == AlignStretchH)
	y, h := layoutAxis(parent.Y, parent.H, v.Offset.Y(), v.Size.Y(), v.Pivot.Y(),
		vAnchor(v.AlignV), v.AlignV == AlignStretchV)
	return Rect{X: x, Y: y, W: w, H: h}
}

// layoutAxis places one axis. The anchor is a fraction of the parent
// extent; a stretched axis anchors at the pivot so that the view keeps its
// relative position as the parent grows.
func layoutAxis(start, extent, offset, size, pivot, anchor float32, stretch bool) (pos, length float32) {
	length = size
	if stretch {
		length = extent + size
		anchor = pivot
	}
	length = max(length, 0)
	pos = start + extent*anchor + offset - pivot*length
	return pos, length
}

func hAnchor(a HAlign) float32 {
	switch a {
	case AlignCenter:
		return 0.5
	case AlignRight:
		return 1
	}
	return 0
}

func vAnchor(a VAlign) float32 {
	switch a {
	case AlignMiddle:
		return 0.5
	case AlignBottom:
		return 1
	}
	return 0
}
