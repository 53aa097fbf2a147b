package widget

import (
	"context"
	"strings"

	"github.com/l1jgo/fragments/internal/app"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Text writes a static string and returns. The content stays mounted.
type Text struct {
	Value string
}

func (t Text) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	v := norm.NFC.String(t.Value)
	return struct{}{}, f.Set(Content.With(v), Extent.With(Measure(v)))
}

// Measure returns the cell extent of v, one row per line.
func Measure(v string) Size {
	if v == "" {
		return Size{}
	}
	lines := strings.Split(v, "\n")
	var w int
	for _, l := range lines {
		w = max(w, runewidth.StringWidth(l))
	}
	return Size{W: w, H: len(lines)}
}
