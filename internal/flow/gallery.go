package flow

import (
	"log/slog"

	"github.com/nampox/reveal/internal/models"
)

// GalleryStep shows the memory collection and withholds the continue
// affordance until the minimum dwell has passed.
type GalleryStep struct {
	cfg   GalleryConfig
	items []models.MemoryItem
	ctx   *StepContext

	visible     bool
	canContinue bool
	done        bool
}

func NewGalleryStep(cfg GalleryConfig, items []models.MemoryItem) *GalleryStep {
	return &GalleryStep{cfg: cfg, items: items}
}

func (g *GalleryStep) ID() models.StepID { return models.StepGallery }

func (g *GalleryStep) Enter(ctx *StepContext) {
	g.ctx = ctx
	ctx.Scope.After(g.cfg.FadeInDelay, func() { g.visible = true })
	ctx.Scope.After(g.cfg.MinDwell, func() {
		g.canContinue = true
		slog.Debug("GalleryStep: continue unlocked", "items", len(g.items))
	})
}

// Click continues once the dwell has passed.
func (g *GalleryStep) Click() {
	if !g.canContinue || g.done {
		return
	}
	g.done = true
	g.ctx.Complete()
}

func (g *GalleryStep) Items() []models.MemoryItem { return g.items }
func (g *GalleryStep) Visible() bool              { return g.visible }
func (g *GalleryStep) CanContinue() bool          { return g.canContinue }
