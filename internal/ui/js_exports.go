//go:build js

package ui

import "syscall/js"

// initJS exposes scene navigation to the page.
func (g *Game) initJS() {
	js.Global().Set("photoscapeNext", js.FuncOf(func(js.Value, []js.Value) any {
		g.jsNav.Add(1)
		return nil
	}))
	js.Global().Set("photoscapePrev", js.FuncOf(func(js.Value, []js.Value) any {
		g.jsNav.Add(-1)
		return nil
	}))
}

// reportStateJS publishes the current scene and counter for page scripts.
func (g *Game) reportStateJS() {
	js.Global().Set("__photoscape", js.ValueOf(map[string]any{
		"scene":   g.eng.Scene().Name,
		"index":   g.nav.Index(),
		"counter": g.eng.Router.Counter(),
		"ambient": g.eng.AmbientPlaying(),
	}))
}
