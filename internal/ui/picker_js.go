//go:build js

package ui

// ImagePicker has no browser implementation; images come from the scene
// list.
func ImagePicker() func() (string, error) { return nil }
