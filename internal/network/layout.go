package network

import (
	"math"

	"github.com/vanshika/chronos/internal/domain"
)

// Forces tunes the simulation. Zero values are replaced by DefaultForces.
type Forces struct {
	LinkDistance  float64
	Charge        float64
	CollideRadius float64
	VelocityDecay float64
	AlphaMin      float64
	AlphaDecay    float64
}

// DefaultForces matches a d3-force simulation with link distance 100,
// charge -300 and collision radius 30.
func DefaultForces() Forces {
	return Forces{
		LinkDistance:  100,
		Charge:        -300,
		CollideRadius: 30,
		VelocityDecay: 0.4,
		AlphaMin:      0.001,
		AlphaDecay:    1 - math.Pow(0.001, 1.0/300),
	}
}

func (f Forces) withDefaults() Forces {
	d := DefaultForces()
	if f.LinkDistance == 0 {
		f.LinkDistance = d.LinkDistance
	}
	if f.Charge == 0 {
		f.Charge = d.Charge
	}
	if f.CollideRadius == 0 {
		f.CollideRadius = d.CollideRadius
	}
	if f.VelocityDecay == 0 {
		f.VelocityDecay = d.VelocityDecay
	}
	if f.AlphaMin == 0 {
		f.AlphaMin = d.AlphaMin
	}
	if f.AlphaDecay == 0 {
		f.AlphaDecay = d.AlphaDecay
	}
	return f
}

type resolvedLink struct {
	source, target *domain.AccountNode
	bias           float64
	strength       float64
}

// Layout is a force-directed simulation over a node set. It resolves link
// endpoints to node references in place.
type Layout struct {
	forces  Forces
	nodes   []*domain.AccountNode
	links   []resolvedLink
	cx, cy  float64
	alpha   float64
	jiggleN uint64
}

// NewLayout seeds node positions on a phyllotaxis spiral around the canvas
// center and resolves links.
func NewLayout(nodes []*domain.AccountNode, links []domain.FlowLink, width, height float64, forces Forces) *Layout {
	l := &Layout{
		forces: forces.withDefaults(),
		nodes:  nodes,
		cx:     width / 2,
		cy:     height / 2,
		alpha:  1,
	}

	const initialRadius = 10
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	index := make(map[string]*domain.AccountNode, len(nodes))
	for i, n := range nodes {
		index[n.ID] = n
		if n.X == 0 && n.Y == 0 {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X = l.cx + r*math.Cos(a)
			n.Y = l.cy + r*math.Sin(a)
		}
		n.VX, n.VY = 0, 0
	}

	count := make(map[string]int, len(nodes))
	for i := range links {
		link := &links[i]
		if link.Source.Node == nil {
			link.Source.Node = index[link.Source.ID]
		}
		if link.Target.Node == nil {
			link.Target.Node = index[link.Target.ID]
		}
		s, t := link.Source.Node, link.Target.Node
		if s == nil || t == nil || s == t {
			continue
		}
		count[s.ID]++
		count[t.ID]++
		l.links = append(l.links, resolvedLink{source: s, target: t})
	}
	for i := range l.links {
		rl := &l.links[i]
		cs, ct := float64(count[rl.source.ID]), float64(count[rl.target.ID])
		rl.bias = cs / (cs + ct)
		rl.strength = 1 / math.Min(cs, ct)
	}
	return l
}

// Alpha returns the current simulation temperature.
func (l *Layout) Alpha() float64 { return l.alpha }

// Done reports whether the simulation has cooled below AlphaMin.
func (l *Layout) Done() bool { return l.alpha < l.forces.AlphaMin }

// Reheat restarts the cooling schedule.
func (l *Layout) Reheat() { l.alpha = 1 }

// Tick advances the simulation one step. It reports false once cooled.
func (l *Layout) Tick() bool {
	if l.Done() {
		return false
	}
	l.alpha += (0 - l.alpha) * l.forces.AlphaDecay

	l.applyLinks()
	l.applyCharge()
	l.applyCollision()

	keep := 1 - l.forces.VelocityDecay
	for _, n := range l.nodes {
		if n.FX != nil {
			n.X, n.VX = *n.FX, 0
		} else {
			n.VX *= keep
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y, n.VY = *n.FY, 0
		} else {
			n.VY *= keep
			n.Y += n.VY
		}
	}
	l.applyCenter()
	return !l.Done()
}

func (l *Layout) applyLinks() {
	for _, rl := range l.links {
		s, t := rl.source, rl.target
		dx := t.X + t.VX - s.X - s.VX
		dy := t.Y + t.VY - s.Y - s.VY
		if dx == 0 {
			dx = l.jiggle()
		}
		if dy == 0 {
			dy = l.jiggle()
		}
		dist := math.Sqrt(dx*dx + dy*dy)
		k := (dist - l.forces.LinkDistance) / dist * l.alpha * rl.strength
		dx *= k
		dy *= k
		t.VX -= dx * rl.bias
		t.VY -= dy * rl.bias
		s.VX += dx * (1 - rl.bias)
		s.VY += dy * (1 - rl.bias)
	}
}

func (l *Layout) applyCharge() {
	const distanceMin2 = 1
	for i, a := range l.nodes {
		for j, b := range l.nodes {
			if i == j {
				continue
			}
			dx := b.X - a.X
			dy := b.Y - a.Y
			if dx == 0 {
				dx = l.jiggle()
			}
			if dy == 0 {
				dy = l.jiggle()
			}
			d2 := dx*dx + dy*dy
			if d2 < distanceMin2 {
				d2 = math.Sqrt(distanceMin2 * d2)
			}
			w := l.forces.Charge * l.alpha / d2
			a.VX += dx * w
			a.VY += dy * w
		}
	}
}

func (l *Layout) applyCollision() {
	r := l.forces.CollideRadius
	minDist := 2 * r
	for i := 0; i < len(l.nodes); i++ {
		a := l.nodes[i]
		for j := i + 1; j < len(l.nodes); j++ {
			b := l.nodes[j]
			dx := a.X + a.VX - b.X - b.VX
			dy := a.Y + a.VY - b.Y - b.VY
			d2 := dx*dx + dy*dy
			if d2 >= minDist*minDist {
				continue
			}
			if dx == 0 {
				dx = l.jiggle()
				d2 += dx * dx
			}
			if dy == 0 {
				dy = l.jiggle()
				d2 += dy * dy
			}
			d := math.Sqrt(d2)
			k := (minDist - d) / d * 0.5
			a.VX += dx * k
			a.VY += dy * k
			b.VX -= dx * k
			b.VY -= dy * k
		}
	}
}

func (l *Layout) applyCenter() {
	if len(l.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range l.nodes {
		sx += n.X
		sy += n.Y
	}
	sx = sx/float64(len(l.nodes)) - l.cx
	sy = sy/float64(len(l.nodes)) - l.cy
	for _, n := range l.nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// jiggle returns a tiny deterministic offset used to separate coincident nodes.
func (l *Layout) jiggle() float64 {
	l.jiggleN = l.jiggleN*6364136223846793005 + 1442695040888963407
	return (float64(l.jiggleN>>11)/float64(1<<53) - 0.5) * 1e-6
}
