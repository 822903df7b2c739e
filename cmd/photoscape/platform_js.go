//go:build js

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"syscall/js"

	"github.com/yiyujin/photoscape/core/engine"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

// openAsset fetches path relative to the page.
func openAsset(path string) (io.ReadCloser, error) {
	base, err := url.Parse(js.Global().Get("location").Get("href").String())
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	resp, err := http.Get(base.ResolveReference(ref).String())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", path, resp.Status)
	}
	return resp.Body, nil
}

func openMIDI(string, *game_log.Logger) (engine.InstrumentFactory, func() error, error) {
	return nil, nil, errors.New("midi output is not available in the browser")
}
