package ui

// applyJSNav performs scene steps requested from outside the game loop.
func (g *Game) applyJSNav() {
	for d := g.jsNav.Swap(0); d != 0; {
		if d > 0 {
			g.next(1)
			d--
		} else {
			g.next(-1)
			d++
		}
	}
}
