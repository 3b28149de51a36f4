package flow

import (
	"time"

	"github.com/nampox/reveal/internal/models"
)

// WelcomeStep is the short interstitial shown to returning visitors.
type WelcomeStep struct {
	Message string
	delay   time.Duration
}

func NewWelcomeStep(message string, delay time.Duration) *WelcomeStep {
	return &WelcomeStep{Message: message, delay: delay}
}

func (w *WelcomeStep) ID() models.StepID { return models.StepWelcome }

func (w *WelcomeStep) Enter(ctx *StepContext) {
	ctx.Scope.After(w.delay, ctx.Complete)
}
