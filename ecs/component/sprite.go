package component

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
)

type SpriteRenderer struct {
	Color   mgl64.Vec4
	Texture string
	ZIndex  int
}

var SpriteRendererComponent = ecs.NewComponent[SpriteRenderer]("SpriteRenderer")

type FontRenderer struct {
	Text     string
	Font     string
	FontSize int
	Color    mgl64.Vec4
}

var FontRendererComponent = ecs.NewComponent[FontRenderer]("FontRenderer")
