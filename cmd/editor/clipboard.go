package main

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.design/x/clipboard"
)

var errClipboardUnavailable = eris.New("editor: system clipboard unavailable")

// systemClipboard bridges editor copy/paste to the OS clipboard as text.
type systemClipboard struct {
	ready bool
}

func newSystemClipboard(logger zerolog.Logger) *systemClipboard {
	if err := clipboard.Init(); err != nil {
		logger.Warn().Err(err).Msg("clipboard disabled")
		return &systemClipboard{}
	}
	return &systemClipboard{ready: true}
}

func (c *systemClipboard) ReadText() ([]byte, error) {
	if !c.ready {
		return nil, errClipboardUnavailable
	}
	return clipboard.Read(clipboard.FmtText), nil
}

func (c *systemClipboard) WriteText(data []byte) error {
	if !c.ready {
		return errClipboardUnavailable
	}
	clipboard.Write(clipboard.FmtText, data)
	return nil
}
