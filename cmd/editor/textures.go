package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/rs/zerolog"
)

// textureCache loads sprite textures on first use. Failed paths are
// remembered so a missing file is reported once.
type textureCache struct {
	log    zerolog.Logger
	images map[string]*ebiten.Image
	failed map[string]bool
}

func newTextureCache(logger zerolog.Logger) *textureCache {
	return &textureCache{
		log:    logger.With().Str("component", "textures").Logger(),
		images: make(map[string]*ebiten.Image),
		failed: make(map[string]bool),
	}
}

func (c *textureCache) Get(path string) *ebiten.Image {
	if path == "" || c.failed[path] {
		return nil
	}
	if img, ok := c.images[path]; ok {
		return img
	}
	img, _, err := ebitenutil.NewImageFromFile(path)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("texture not loaded")
		c.failed[path] = true
		return nil
	}
	c.images[path] = img
	return img
}

// Release frees every GPU image. The scene calls it when its registry is
// torn down.
func (c *textureCache) Release() {
	for path, img := range c.images {
		img.Deallocate()
		delete(c.images, path)
	}
	clear(c.failed)
}
