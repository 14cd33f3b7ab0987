package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/rotisserie/eris"
)

// CreateEntity adds a named entity with a default transform at position.
func (s *Scene) CreateEntity(name string, position mgl64.Vec3) (ecs.Entity, error) {
	e := ecs.CreateEntity(s.world)
	t := component.DefaultTransform()
	t.Position = position
	t.Local = t.LocalMatrix()
	t.World = t.Local
	if err := ecs.Add(s.world, e, component.TransformComponent.Kind(), &t); err != nil {
		return ecs.Null, err
	}
	tag := component.Tag{Name: name, ID: int(e.ID())}
	if err := ecs.Add(s.world, e, component.TagComponent.Kind(), &tag); err != nil {
		return ecs.Null, err
	}
	return e, nil
}

// RefreshBody rebuilds e's physics body from its current components, e.g.
// after the inspector changed a collider or the body type.
func (s *Scene) RefreshBody(e ecs.Entity) {
	if rb, ok := ecs.Get(s.world, e, component.Rigidbody2DComponent.Kind()); ok && s.physics.Registered(rb) {
		s.physics.DeleteEntity(s.world, e)
	}
	s.physics.AddEntity(s.world, e)
}

// DeleteEntity destroys e and every descendant in its transform subtree.
// Physics bodies are detached before their components go away.
func (s *Scene) DeleteEntity(e ecs.Entity) error {
	if !ecs.IsAlive(s.world, e) {
		return eris.Wrapf(ecs.ErrInvalidEntity, "delete %s", e)
	}
	victims := append(system.Descendants(s.world, e), e)
	for i := len(victims) - 1; i >= 0; i-- {
		v := victims[i]
		if ecs.Has(s.world, v, component.Rigidbody2DComponent) {
			s.physics.DeleteEntity(s.world, v)
		}
		if err := ecs.DestroyEntity(s.world, v); err != nil {
			return err
		}
	}
	return nil
}

// DuplicateEntity copies every component of e onto a new entity. The copy
// keeps e's parent and gets its own physics body.
func (s *Scene) DuplicateEntity(e ecs.Entity) (ecs.Entity, error) {
	if !ecs.IsAlive(s.world, e) {
		return ecs.Null, eris.Wrapf(ecs.ErrInvalidEntity, "duplicate %s", e)
	}
	dup := ecs.CreateEntity(s.world)
	if err := s.copyComponents(e, dup); err != nil {
		if derr := ecs.DestroyEntity(s.world, dup); derr != nil {
			s.log.Warn().Err(derr).Stringer("entity", dup).Msg("discard partial duplicate")
		}
		return ecs.Null, err
	}
	s.physics.AddEntity(s.world, dup)
	return dup, nil
}

func (s *Scene) copyComponents(src, dst ecs.Entity) error {
	d := newDecoder(s.world, s.log, func(uint32) ecs.Entity { return dst })
	for _, c := range codecs {
		rec, ok := c.encode(s.world, src)
		if !ok {
			continue
		}
		raw, err := marshalRecord(rec)
		if err != nil {
			return err
		}
		if err := c.decode(d, dst, raw); err != nil {
			return err
		}
	}
	if t, ok := ecs.Get(s.world, src, component.TransformComponent.Kind()); ok && ecs.IsAlive(s.world, t.Parent) {
		return system.SetParent(s.world, dst, t.Parent)
	}
	return nil
}

// CopyEntity encodes e and its descendants as a standalone document.
func (s *Scene) CopyEntity(e ecs.Entity) ([]byte, error) {
	if !ecs.IsAlive(s.world, e) {
		return nil, eris.Wrapf(ecs.ErrInvalidEntity, "copy %s", e)
	}
	subset := map[ecs.Entity]bool{e: true}
	for _, d := range system.Descendants(s.world, e) {
		subset[d] = true
	}
	return encodeEntities(s.world, func(x ecs.Entity) bool { return subset[x] })
}

// PasteEntities adds the entities of doc under fresh ids. Parent links
// inside doc are remapped; links to entities outside doc are dropped.
func (s *Scene) PasteEntities(doc []byte) ([]ecs.Entity, error) {
	// Validate against a scratch registry so a bad paste adds nothing.
	if _, err := s.decodeWorld(doc); err != nil {
		return nil, err
	}
	d := newDecoder(s.world, s.log, func(uint32) ecs.Entity { return ecs.CreateEntity(s.world) })
	if err := d.decode(doc); err != nil {
		return nil, err
	}
	for _, e := range d.order {
		if tag, ok := ecs.Get(s.world, e, component.TagComponent.Kind()); ok {
			tag.ID = int(e.ID())
		}
		s.physics.AddEntity(s.world, e)
	}
	return d.order, nil
}
