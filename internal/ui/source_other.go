//go:build !js

package ui

func newEventSource(*Game) eventSource { return NewPoller() }

func (g *Game) initJS()        {}
func (g *Game) reportStateJS() {}
