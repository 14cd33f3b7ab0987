package scene

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/goccy/go-json"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type vec2 struct {
	X float64
	Y float64
}

type vec3 struct {
	X float64
	Y float64
	Z float64
}

type vec4 struct {
	X float64
	Y float64
	Z float64
	W float64
}

func fromVec2(v mgl64.Vec2) vec2 { return vec2{v.X(), v.Y()} }
func fromVec3(v mgl64.Vec3) vec3 { return vec3{v.X(), v.Y(), v.Z()} }
func fromVec4(v mgl64.Vec4) vec4 { return vec4{v.X(), v.Y(), v.Z(), v.W()} }

func (v vec2) mgl() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }
func (v vec3) mgl() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }
func (v vec4) mgl() mgl64.Vec4 { return mgl64.Vec4{v.X, v.Y, v.Z, v.W} }

// componentCodec maps one component kind to and from its document record.
type componentCodec interface {
	Name() string
	Kind() ecs.AnyKind
	encode(w *ecs.World, e ecs.Entity) (any, bool)
	decode(d *decoder, e ecs.Entity, raw json.RawMessage) error
}

type kindCodec[T any, D any] struct {
	handle  ecs.ComponentHandle[T]
	prefill func() D
	toDoc   func(w *ecs.World, e ecs.Entity, v *T) D
	fromDoc func(d *decoder, e ecs.Entity, doc *D) T
}

func (c kindCodec[T, D]) Name() string { return c.handle.Name() }
func (c kindCodec[T, D]) Kind() ecs.AnyKind { return c.handle }

func (c kindCodec[T, D]) encode(w *ecs.World, e ecs.Entity) (any, bool) {
	v, ok := ecs.Get(w, e, c.handle.Kind())
	if !ok {
		return nil, false
	}
	return c.toDoc(w, e, v), true
}

func (c kindCodec[T, D]) decode(d *decoder, e ecs.Entity, raw json.RawMessage) error {
	// Absent keys keep the prefilled defaults.
	doc := c.prefill()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return eris.Wrapf(ErrMalformedDocument, "%s record: %v", c.Name(), err)
	}
	value := c.fromDoc(d, e, &doc)
	if err := ecs.Add(d.w, e, c.handle.Kind(), &value); err != nil {
		if eris.Is(err, ecs.ErrDuplicateComponent) {
			return eris.Wrapf(ErrMalformedDocument, "entity %d has two %s records", e.ID(), c.Name())
		}
		return err
	}
	return nil
}

type transformDoc struct {
	Entity        uint32
	Position      vec3
	Scale         vec3
	EulerRotation vec3
	Parent        uint32 `json:",omitempty"`
}

type tagDoc struct {
	Entity uint32
	Name   string
	ID     int
}

type spriteDoc struct {
	Entity  uint32
	Color   vec4
	Texture string
	ZIndex  int
}

type fontDoc struct {
	Entity   uint32
	Text     string
	Font     string
	FontSize int
	Color    vec4
}

type rigidbodyDoc struct {
	Entity              uint32
	BodyType            string
	Mass                float64
	LinearDamping       float64
	AngularDamping      float64
	FixedRotation       bool
	ContinuousCollision bool
	Velocity            vec2

	// Older scenes spelled this key without the second "u".
	LegacyContinuous *bool `json:"ContinousCollision,omitempty"`
}

type box2DDoc struct {
	Entity   uint32
	HalfSize vec2
	Size     vec2
}

type circleDoc struct {
	Entity uint32
	Radius float64
	Offset vec2
}

type aabbDoc struct {
	Entity   uint32
	HalfSize vec2
	Size     vec2
	Offset   vec2
}

// codecs lists every persisted kind in document order.
var codecs = []componentCodec{
	kindCodec[component.Transform, transformDoc]{
		handle: component.TransformComponent,
		prefill: func() transformDoc {
			return transformDoc{Scale: vec3{1, 1, 1}}
		},
		toDoc: func(w *ecs.World, e ecs.Entity, t *component.Transform) transformDoc {
			doc := transformDoc{
				Entity:        e.ID(),
				Position:      fromVec3(t.Position),
				Scale:         fromVec3(t.Scale),
				EulerRotation: fromVec3(t.EulerRotation),
			}
			if ecs.IsAlive(w, t.Parent) {
				doc.Parent = t.Parent.ID()
			}
			return doc
		},
		fromDoc: func(d *decoder, e ecs.Entity, doc *transformDoc) component.Transform {
			if doc.Parent != 0 {
				d.parents[e] = doc.Parent
			}
			return component.NewTransform(doc.Position.mgl(), doc.Scale.mgl(), doc.EulerRotation.mgl())
		},
	},
	kindCodec[component.Tag, tagDoc]{
		handle:  component.TagComponent,
		prefill: func() tagDoc { return tagDoc{} },
		toDoc: func(_ *ecs.World, e ecs.Entity, t *component.Tag) tagDoc {
			return tagDoc{Entity: e.ID(), Name: t.Name, ID: t.ID}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *tagDoc) component.Tag {
			return component.Tag{Name: doc.Name, ID: doc.ID}
		},
	},
	kindCodec[component.SpriteRenderer, spriteDoc]{
		handle:  component.SpriteRendererComponent,
		prefill: func() spriteDoc { return spriteDoc{Color: vec4{1, 1, 1, 1}} },
		toDoc: func(_ *ecs.World, e ecs.Entity, s *component.SpriteRenderer) spriteDoc {
			return spriteDoc{Entity: e.ID(), Color: fromVec4(s.Color), Texture: s.Texture, ZIndex: s.ZIndex}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *spriteDoc) component.SpriteRenderer {
			return component.SpriteRenderer{Color: doc.Color.mgl(), Texture: doc.Texture, ZIndex: doc.ZIndex}
		},
	},
	kindCodec[component.FontRenderer, fontDoc]{
		handle:  component.FontRendererComponent,
		prefill: func() fontDoc { return fontDoc{Color: vec4{1, 1, 1, 1}, FontSize: 16} },
		toDoc: func(_ *ecs.World, e ecs.Entity, f *component.FontRenderer) fontDoc {
			return fontDoc{Entity: e.ID(), Text: f.Text, Font: f.Font, FontSize: f.FontSize, Color: fromVec4(f.Color)}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *fontDoc) component.FontRenderer {
			return component.FontRenderer{Text: doc.Text, Font: doc.Font, FontSize: doc.FontSize, Color: doc.Color.mgl()}
		},
	},
	kindCodec[component.Rigidbody2D, rigidbodyDoc]{
		handle: component.Rigidbody2DComponent,
		prefill: func() rigidbodyDoc {
			return rigidbodyDoc{BodyType: component.BodyDynamic.String(), Mass: 1}
		},
		toDoc: func(_ *ecs.World, e ecs.Entity, rb *component.Rigidbody2D) rigidbodyDoc {
			return rigidbodyDoc{
				Entity:              e.ID(),
				BodyType:            rb.BodyType.String(),
				Mass:                rb.Mass,
				LinearDamping:       rb.LinearDamping,
				AngularDamping:      rb.AngularDamping,
				FixedRotation:       rb.FixedRotation,
				ContinuousCollision: rb.ContinuousCollision,
				Velocity:            fromVec2(rb.Velocity),
			}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *rigidbodyDoc) component.Rigidbody2D {
			continuous := doc.ContinuousCollision
			if doc.LegacyContinuous != nil {
				continuous = continuous || *doc.LegacyContinuous
			}
			return component.Rigidbody2D{
				BodyType:            component.ParseBodyType2D(doc.BodyType),
				Mass:                doc.Mass,
				LinearDamping:       doc.LinearDamping,
				AngularDamping:      doc.AngularDamping,
				FixedRotation:       doc.FixedRotation,
				ContinuousCollision: continuous,
				Velocity:            doc.Velocity.mgl(),
			}
		},
	},
	kindCodec[component.Box2D, box2DDoc]{
		handle:  component.Box2DComponent,
		prefill: func() box2DDoc { return box2DDoc{HalfSize: vec2{0.5, 0.5}} },
		toDoc: func(_ *ecs.World, e ecs.Entity, b *component.Box2D) box2DDoc {
			return box2DDoc{Entity: e.ID(), HalfSize: fromVec2(b.HalfSize), Size: fromVec2(b.Size)}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *box2DDoc) component.Box2D {
			// Size is derived; a stored value is ignored.
			return component.NewBox2D(doc.HalfSize.mgl())
		},
	},
	kindCodec[component.Circle, circleDoc]{
		handle:  component.CircleComponent,
		prefill: func() circleDoc { return circleDoc{Radius: 0.5} },
		toDoc: func(_ *ecs.World, e ecs.Entity, c *component.Circle) circleDoc {
			return circleDoc{Entity: e.ID(), Radius: c.Radius, Offset: fromVec2(c.Offset)}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *circleDoc) component.Circle {
			return component.Circle{Radius: doc.Radius, Offset: doc.Offset.mgl()}
		},
	},
	kindCodec[component.AABB, aabbDoc]{
		handle:  component.AABBComponent,
		prefill: func() aabbDoc { return aabbDoc{HalfSize: vec2{0.5, 0.5}} },
		toDoc: func(_ *ecs.World, e ecs.Entity, b *component.AABB) aabbDoc {
			return aabbDoc{Entity: e.ID(), HalfSize: fromVec2(b.HalfSize), Size: fromVec2(b.Size), Offset: fromVec2(b.Offset)}
		},
		fromDoc: func(_ *decoder, _ ecs.Entity, doc *aabbDoc) component.AABB {
			return component.NewAABB(doc.HalfSize.mgl(), doc.Offset.mgl())
		},
	},
}

var codecsByName = func() map[string]componentCodec {
	out := make(map[string]componentCodec, len(codecs))
	for _, c := range codecs {
		out[c.Name()] = c
	}
	return out
}()

type document struct {
	Components []map[string]any
}

type rawDocument struct {
	Components *[]map[string]json.RawMessage
}

type recordHeader struct {
	Entity *float64
}

// encodeEntities writes one record per (entity, kind) pair. Records are
// grouped by kind, each kind in store order, filtered by keep.
func encodeEntities(w *ecs.World, keep func(ecs.Entity) bool) ([]byte, error) {
	doc := document{Components: []map[string]any{}}
	for _, c := range codecs {
		for e := range ecs.View(w, c.Kind()) {
			if keep != nil && !keep(e) {
				continue
			}
			rec, ok := c.encode(w, e)
			if !ok {
				continue
			}
			doc.Components = append(doc.Components, map[string]any{c.Name(): rec})
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "scene: encode document")
	}
	return data, nil
}

// decoder rebuilds components into w. entity maps a stored id to the target
// entity; parents are linked once every record is in.
type decoder struct {
	w       *ecs.World
	log     zerolog.Logger
	entity  func(id uint32) ecs.Entity
	ids     map[uint32]ecs.Entity
	order   []ecs.Entity
	parents map[ecs.Entity]uint32
}

func newDecoder(w *ecs.World, logger zerolog.Logger, entity func(id uint32) ecs.Entity) *decoder {
	return &decoder{
		w:       w,
		log:     logger,
		entity:  entity,
		ids:     make(map[uint32]ecs.Entity),
		parents: make(map[ecs.Entity]uint32),
	}
}

func (d *decoder) target(id uint32) ecs.Entity {
	if e, ok := d.ids[id]; ok {
		return e
	}
	e := d.entity(id)
	d.ids[id] = e
	d.order = append(d.order, e)
	return e
}

func (d *decoder) decode(data []byte) error {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrapf(ErrMalformedDocument, "parse: %v", err)
	}
	if raw.Components == nil {
		return eris.Wrap(ErrMalformedDocument, `missing "Components"`)
	}
	for i, record := range *raw.Components {
		names := make([]string, 0, len(record))
		for name := range record {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c, ok := codecsByName[name]
			if !ok {
				d.log.Warn().Str("kind", name).Int("record", i).Msg("skipping unknown component kind")
				continue
			}
			id, err := recordEntity(record[name])
			if err != nil {
				return eris.Wrapf(err, "record %d (%s)", i, name)
			}
			if err := c.decode(d, d.target(id), record[name]); err != nil {
				return err
			}
		}
	}
	return d.linkParents()
}

// maxEntityID caps stored ids. Loading creates every index up to the highest
// id, so an unbounded id would allocate without limit.
const maxEntityID = 1 << 20

func recordEntity(raw json.RawMessage) (uint32, error) {
	var header recordHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return 0, eris.Wrapf(ErrMalformedDocument, "parse record: %v", err)
	}
	if header.Entity == nil {
		return 0, eris.Wrap(ErrMalformedDocument, `missing "Entity"`)
	}
	id := *header.Entity
	if id < 1 || id != math.Trunc(id) {
		return 0, eris.Wrapf(ErrMalformedDocument, "invalid entity id %v", id)
	}
	if id > maxEntityID {
		return 0, eris.Wrapf(ErrMalformedDocument, "entity id %v above limit %d", id, maxEntityID)
	}
	return uint32(id), nil
}

func (d *decoder) linkParents() error {
	children := make([]ecs.Entity, 0, len(d.parents))
	for child := range d.parents {
		children = append(children, child)
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	for _, child := range children {
		pid := d.parents[child]
		parent, ok := d.ids[pid]
		if !ok || !ecs.Has(d.w, parent, component.TransformComponent) {
			d.log.Warn().Uint32("parent", pid).Stringer("entity", child).Msg("parent not in document, attaching to root")
			continue
		}
		if err := system.SetParent(d.w, child, parent); err != nil {
			return eris.Wrapf(ErrMalformedDocument, "parent of %d: %v", child.ID(), err)
		}
	}
	return nil
}

func marshalRecord(rec any) (json.RawMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "scene: encode record")
	}
	return data, nil
}
