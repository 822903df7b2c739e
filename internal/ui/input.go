package ui

import "github.com/hajimehoshi/ebiten/v2"

var (
	cursorPosition       = ebiten.CursorPosition
	isMouseButtonPressed = ebiten.IsMouseButtonPressed
	isKeyPressed         = ebiten.IsKeyPressed
	touchIDs             = func() []ebiten.TouchID { return ebiten.AppendTouchIDs(nil) }
	touchPosition        = ebiten.TouchPosition
)

// SetInputForTest replaces input functions during tests and returns a function
// to restore the originals.
func SetInputForTest(
	cursor func() (int, int),
	mouse func(ebiten.MouseButton) bool,
	key func(ebiten.Key) bool,
	touches func() []ebiten.TouchID,
	touchPos func(ebiten.TouchID) (int, int),
) func() {
	oldCursor := cursorPosition
	oldMouse := isMouseButtonPressed
	oldKey := isKeyPressed
	oldTouches := touchIDs
	oldTouchPos := touchPosition
	cursorPosition = cursor
	isMouseButtonPressed = mouse
	isKeyPressed = key
	touchIDs = touches
	touchPosition = touchPos
	return func() {
		cursorPosition = oldCursor
		isMouseButtonPressed = oldMouse
		isKeyPressed = oldKey
		touchIDs = oldTouches
		touchPosition = oldTouchPos
	}
}

// keyLatch reports a key once per press.
type keyLatch struct {
	prev map[ebiten.Key]bool
}

func (k *keyLatch) pressed(key ebiten.Key) bool {
	if k.prev == nil {
		k.prev = map[ebiten.Key]bool{}
	}
	now := isKeyPressed(key)
	was := k.prev[key]
	k.prev[key] = now
	return now && !was
}
