package pdfview

import "math"

// Size is a page size in PDF points at scale 1.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scaled returns the viewport size at the given scale.
func (s Size) Scaled(scale float64) Size {
	return Size{Width: s.Width * scale, Height: s.Height * scale}
}

// SlotBox is the position of one page slot inside the scrolling page column,
// in CSS pixels.
type SlotBox struct {
	Page   int     `json:"page"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Direction is a navigation step.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// ScrollTarget tells the browser where to scroll the page column.
type ScrollTarget struct {
	Page     int     `json:"page"`
	Top      float64 `json:"top"`
	Behavior string  `json:"behavior"`
}

// layoutSlots stacks pages vertically: container padding on top, then each
// bordered page followed by the page margin.
func layoutSlots(sizes []Size, scale float64) []SlotBox {
	boxes := make([]SlotBox, len(sizes))
	top := float64(ContainerPadding)
	for i, s := range sizes {
		vp := s.Scaled(scale)
		w := math.Floor(vp.Width) + 2*PageBorder
		h := math.Floor(vp.Height) + 2*PageBorder
		boxes[i] = SlotBox{Page: i + 1, Top: top, Width: w, Height: h}
		top += h + PageMargin
	}
	return boxes
}

// currentSlot returns the index of the first slot whose vertical midpoint is
// at or below scrollTop, or the last slot when none is.
func currentSlot(boxes []SlotBox, scrollTop float64) int {
	idx := 0
	for i, b := range boxes {
		if b.Top+b.Height/2 >= scrollTop {
			return i
		}
		idx = i
	}
	return idx
}

// navigate returns the scroll target one slot away from the current one.
// ok is false when the target would fall outside the document.
func navigate(boxes []SlotBox, scrollTop float64, dir Direction) (ScrollTarget, bool) {
	if len(boxes) == 0 {
		return ScrollTarget{}, false
	}
	target := currentSlot(boxes, scrollTop) + int(dir)
	if target < 0 || target >= len(boxes) {
		return ScrollTarget{}, false
	}
	b := boxes[target]
	return ScrollTarget{Page: b.Page, Top: b.Top, Behavior: "smooth"}, true
}
