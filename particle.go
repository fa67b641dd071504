package bubblemind

import (
	"math"
	"math/rand/v2"
)

// Range is a general-purpose min/max range.
type Range struct {
	Min, Max float64
}

// Random returns a random float64 in [Min, Max].
func (r Range) Random() float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rand.Float64()*(r.Max-r.Min)
}

// Particle is one fragment of a popped bubble.
type Particle struct {
	X, Y    float64
	vx, vy  float64
	Radius  float64
	Alpha   float64
	life    float64 // remaining lifetime in seconds
	maxLife float64
}

// BurstConfig controls the fragments spawned when a bubble pops.
type BurstConfig struct {
	// Count is the number of fragments per burst.
	Count int
	// Lifetime is the range of fragment lifetimes in seconds.
	Lifetime Range
	// Speed is the range of initial speeds in units per second.
	Speed Range
	// Radius is the range of fragment radii at birth. Fragments shrink to zero.
	Radius Range
	// Gravity is the constant acceleration applied to every fragment.
	Gravity Vec2
}

// DefaultBurstConfig returns the stock pop effect: 15 fragments living about
// one second.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{
		Count:    15,
		Lifetime: Range{0.6, 1.0},
		Speed:    Range{60, 180},
		Radius:   Range{3, 7},
		Gravity:  Vec2{0, 120},
	}
}

// Burst is a one-shot particle effect at a popped bubble.
type Burst struct {
	Color     Color
	particles []Particle
	alive     int
	radii     []float64
}

// newBurst spawns cfg.Count fragments at center, starting on the rim of a
// bubble of the given radius.
func newBurst(cfg BurstConfig, center Vec2, radius float64, color Color) *Burst {
	n := cfg.Count
	if n <= 0 {
		n = 15
	}
	b := &Burst{
		Color:     color,
		particles: make([]Particle, n),
		radii:     make([]float64, n),
		alive:     n,
	}
	for i := range b.particles {
		angle := 2 * math.Pi * float64(i) / float64(n)
		speed := cfg.Speed.Random()
		p := &b.particles[i]
		p.X = center.X + math.Cos(angle)*radius
		p.Y = center.Y + math.Sin(angle)*radius
		p.vx = math.Cos(angle) * speed
		p.vy = math.Sin(angle) * speed
		p.life = cfg.Lifetime.Random()
		if p.life <= 0 {
			p.life = 1.0
		}
		p.maxLife = p.life
		p.Radius = cfg.Radius.Random()
		p.Alpha = 1
		b.radii[i] = p.Radius
	}
	return b
}

// update advances the simulation by dt seconds, swap-removing dead fragments.
func (b *Burst) update(dt float64, gravity Vec2) {
	gx := gravity.X * dt
	gy := gravity.Y * dt
	i := 0
	for i < b.alive {
		p := &b.particles[i]
		p.life -= dt
		if p.life <= 0 {
			b.alive--
			b.particles[i] = b.particles[b.alive]
			b.radii[i] = b.radii[b.alive]
			continue
		}
		p.vx += gx
		p.vy += gy
		p.X += p.vx * dt
		p.Y += p.vy * dt

		t := 1.0 - p.life/p.maxLife
		p.Alpha = lerp(1, 0, t)
		p.Radius = lerp(b.radii[i], 0, t)
		i++
	}
}

// Particles returns the live fragments.
func (b *Burst) Particles() []Particle {
	return b.particles[:b.alive]
}

// Done reports whether every fragment has expired.
func (b *Burst) Done() bool {
	return b.alive == 0
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
