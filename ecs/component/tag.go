package component

import "github.com/milk9111/cocoa2d/ecs"

// Tag is the display name shown in the hierarchy.
type Tag struct {
	Name string
	ID   int
}

var TagComponent = ecs.NewComponent[Tag]("Tag")
