package player

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/models"
)

var (
	styleBase   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	styleWarm   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 176, 128)).Background(tcell.ColorBlack)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorBlack)
	styleAccent = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 95, 135)).Background(tcell.ColorBlack)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGray)
)

// mistGlyphs goes from thin to thick mist.
var mistGlyphs = []rune{'░', '▒', '▓', '█'}

// Draw renders the active step and the status line.
func (p *Player) Draw() {
	p.frames++
	p.screen.Clear()
	w, h := p.sceneSize()

	text := styleBase
	if p.orch.State().WarmMode {
		text = styleWarm
	}

	switch s := p.orch.Active().(type) {
	case *flow.WelcomeStep:
		p.center(h/2, s.Message, text)
	case *flow.HoldStep:
		p.drawHold(s, w, h, text)
	case *flow.WipeStep:
		p.drawWipe(s, w, h)
	case *flow.GalleryStep:
		p.drawGallery(s, h, text)
	case *flow.TimelineStep:
		p.drawTimeline(s, w, h, text)
	case *flow.LetterStep:
		p.drawLetter(s, h, text)
	}

	if phase := p.orch.TransitionPhase(); phase != flow.TransitionIdle {
		p.drawTransition(phase, w, h)
	}
	p.drawStatus(w)
	p.screen.Show()
}

func (p *Player) drawHold(s *flow.HoldStep, w, h int, text tcell.Style) {
	p.center(h/2-2, "✉", styleAccent)
	switch s.Phase() {
	case flow.HoldHeldEnough, flow.HoldCompleted:
		p.center(h/2, "Opening...", text)
	default:
		p.center(h/2, "Press and hold the envelope", text)
	}
	barWidth := w / 2
	if barWidth < 10 {
		barWidth = 10
	}
	p.center(h/2+2, bar(s.Progress(), barWidth), styleAccent)
}

func (p *Player) drawWipe(s *flow.WipeStep, w, h int) {
	surf, ok := s.Surface().(*flow.AlphaSurface)
	if ok {
		opacity := s.Opacity()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sx, sy := p.toSurface(x, y)
				a := float64(surf.AlphaAt(int(sx), int(sy))) * opacity
				if a <= 0 {
					continue
				}
				idx := int(a / 64)
				if idx >= len(mistGlyphs) {
					idx = len(mistGlyphs) - 1
				}
				p.screen.SetContent(x, y, mistGlyphs[idx], nil, styleDim)
			}
		}
	}
	if s.Coverage() < p.cfg.Wipe.Threshold {
		p.center(h-1, "Wipe the mist away", styleBase)
	}
}

func (p *Player) drawGallery(s *flow.GalleryStep, h int, text tcell.Style) {
	if !s.Visible() {
		return
	}
	items := s.Items()
	top := h/2 - len(items)/2 - 1
	for i, item := range items {
		p.center(top+i, fmt.Sprintf("▣ %s", caption(item)), text)
	}
	if s.CanContinue() {
		p.center(top+len(items)+1, "Click to continue", styleAccent)
	}
}

func (p *Player) drawTimeline(s *flow.TimelineStep, w, h int, text tcell.Style) {
	switch s.Phase() {
	case flow.TimelineMilestones:
	case flow.TimelineMessage:
		if s.VoidMessageVisible() {
			p.center(h/2, s.VoidMessage(), styleWarm)
		}
		return
	default:
		return
	}

	m := s.Milestone()
	style := text
	if m.Mood == models.MoodDark {
		style = styleDim
	}
	p.center(h/2-1, m.Text, style)
	if s.SubtextVisible() {
		p.center(h/2+1, m.Subtext, styleDim)
	}
	if !s.IndicatorVisible() {
		return
	}
	if m.Interaction == models.InteractionHold {
		p.center(h/2+3, "Hold to continue "+bar(s.Charge(), w/3), styleAccent)
		return
	}
	p.center(h/2+3, "Scroll ↓", styleAccent)
}

func (p *Player) drawLetter(s *flow.LetterStep, h int, text tcell.Style) {
	switch s.Phase() {
	case flow.LetterClosed:
		p.center(h/2, "✉  Press t to open the letter", styleAccent)
	case flow.LetterFlashing:
		if item, ok := s.FlashItem(); ok {
			p.center(h/2, caption(item), styleBase)
		}
	case flow.LetterOpened:
		lines := s.Typewriter().Lines()
		top := h/2 - len(p.cfg.Letter.Lines)/2 - 1
		for i, line := range lines {
			p.center(top+i, line, text)
		}
		if s.PlayerVisible() {
			state := "▶ Play voice note"
			if p.voice != nil && p.voice.VoicePlaying() {
				state = "■ Stop voice note"
			}
			p.center(top+len(p.cfg.Letter.Lines)+1, "["+state+"]", styleAccent)
		}
	}
}

// drawTransition covers the scene with a band that widens toward the middle phase.
func (p *Player) drawTransition(phase flow.TransitionPhase, w, h int) {
	rows := h
	switch phase {
	case flow.TransitionEntering, flow.TransitionLeaving:
		rows = h / 2
	}
	top := (h - rows) / 2
	for y := top; y < top+rows; y++ {
		for x := 0; x < w; x++ {
			p.screen.SetContent(x, y, '·', nil, styleAccent)
		}
	}
}

func (p *Player) drawStatus(w int) {
	_, h := p.screen.Size()
	state := p.orch.State()
	line := fmt.Sprintf(" %s  layer:%s  warm:%v", state.Step, state.Layer, state.WarmMode)
	if p.debug {
		line += fmt.Sprintf("  timers:%d", p.timers())
	}
	line += "  q to quit"
	runes := []rune(line)
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		p.screen.SetContent(x, h-1, r, nil, styleStatus)
	}
}

// center writes s horizontally centred on row y, clipped to the screen.
func (p *Player) center(y int, s string, style tcell.Style) {
	w, h := p.sceneSize()
	if y < 0 || y >= h {
		return
	}
	runes := []rune(s)
	x := (w - len(runes)) / 2
	if x < 0 {
		x = 0
	}
	for i, r := range runes {
		if x+i >= w {
			return
		}
		p.screen.SetContent(x+i, y, r, nil, style)
	}
}

func bar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", width-filled) + "]"
}

func caption(item models.MemoryItem) string {
	if item.Caption != "" {
		return item.Caption
	}
	return item.Media
}
