package scene

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/aquarium/components"
)

// sceneWorld is the entity world of a single build. It is discarded once the
// scene has been collected.
type sceneWorld struct {
	world *ecs.World

	fish *ecs.Map6[
		components.Order,
		components.Placement,
		components.Heading,
		components.Swim,
		components.Bob,
		components.SpriteRef,
	]
	fishFilter *ecs.Filter6[
		components.Order,
		components.Placement,
		components.Heading,
		components.Swim,
		components.Bob,
		components.SpriteRef,
	]

	beams        *ecs.Map2[components.Order, components.Beam]
	beamFilter   *ecs.Filter2[components.Order, components.Beam]
	bubbles      *ecs.Map2[components.Order, components.Rise]
	bubbleFilter *ecs.Filter2[components.Order, components.Rise]
}

func newSceneWorld() *sceneWorld {
	world := ecs.NewWorld()

	return &sceneWorld{
		world: world,
		fish: ecs.NewMap6[
			components.Order,
			components.Placement,
			components.Heading,
			components.Swim,
			components.Bob,
			components.SpriteRef,
		](world),
		fishFilter: ecs.NewFilter6[
			components.Order,
			components.Placement,
			components.Heading,
			components.Swim,
			components.Bob,
			components.SpriteRef,
		](world),
		beams:        ecs.NewMap2[components.Order, components.Beam](world),
		beamFilter:   ecs.NewFilter2[components.Order, components.Beam](world),
		bubbles:      ecs.NewMap2[components.Order, components.Rise](world),
		bubbleFilter: ecs.NewFilter2[components.Order, components.Rise](world),
	}
}

// collectFish copies fish entities into a slice indexed by their Order.
func (w *sceneWorld) collectFish(n int) []Fish {
	out := make([]Fish, n)
	query := w.fishFilter.Query()
	for query.Next() {
		order, place, heading, swim, bob, ref := query.Get()
		dir := Left
		if heading.Right {
			dir = Right
		}
		out[order.Index] = Fish{
			FishSpec: FishSpec{
				Seed:        ref.Seed,
				Scale:       place.Scale,
				Depth:       place.Depth,
				Direction:   dir,
				Top:         place.Top,
				SwimSeconds: swim.Seconds,
				BobSeconds:  bob.Seconds,
			},
			Sprite:    ref.Index,
			SwimDelay: swim.Delay,
			BobDelay:  bob.Delay,
		}
	}
	return out
}

func (w *sceneWorld) collectBeams(n int) []Beam {
	out := make([]Beam, n)
	query := w.beamFilter.Query()
	for query.Next() {
		order, beam := query.Get()
		out[order.Index] = Beam{Left: beam.Left}
	}
	return out
}

func (w *sceneWorld) collectBubbles(n int) []Bubble {
	out := make([]Bubble, n)
	query := w.bubbleFilter.Query()
	for query.Next() {
		order, rise := query.Get()
		out[order.Index] = Bubble{
			Left:    rise.Left,
			Seconds: rise.Seconds,
			Delay:   rise.Delay,
			Size:    rise.Size,
		}
	}
	return out
}
