package widget

import (
	"context"

	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Named tags its fragment with a name and mounts Child beneath it.
type Named struct {
	Name  string
	Child app.Widget[struct{}]
}

func (n Named) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	if err := f.Set(ecs.Name.With(n.Name)); err != nil {
		return struct{}{}, err
	}
	return Stack{Children: []app.Widget[struct{}]{n.Child}}.Mount(ctx, f)
}
