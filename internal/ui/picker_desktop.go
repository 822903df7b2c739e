//go:build !js

package ui

import (
	"errors"

	"github.com/ncruces/zenity"
)

// ImagePicker returns a native file chooser for images. Cancelling yields
// an empty path.
func ImagePicker() func() (string, error) {
	return func() (string, error) {
		path, err := zenity.SelectFile(
			zenity.Title("Choose an image"),
			zenity.FileFilters{
				{Name: "Images", Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.bmp", "*.webp", "*.tif", "*.tiff"}},
			},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			return "", nil
		}
		return path, err
	}
}
