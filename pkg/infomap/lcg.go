package infomap

// LCG constants. Changing any of them breaks reproducibility of every stored
// partition.
const (
	lcgMultiplier uint64 = 1103515245
	lcgIncrement  uint64 = 12345
	lcgModulus    uint64 = 1 << 32
)

// Lcg is the linear congruential generator that drives every random decision
// of the optimizer. It is not safe for concurrent use; each trial owns one.
type Lcg struct {
	state uint64
}

// NewLcg returns a generator seeded with seed.
func NewLcg(seed uint32) *Lcg {
	r := &Lcg{}
	r.Seed(seed)
	return r
}

// Seed resets the generator state.
func (r *Lcg) Seed(seed uint32) {
	r.state = uint64(seed)
}

func (r *Lcg) advance() uint64 {
	r.state = (lcgMultiplier*r.state + lcgIncrement) % lcgModulus
	return r.state
}

// NextInt returns a non-negative 31-bit integer.
func (r *Lcg) NextInt() int {
	return int(r.advance() >> 1)
}

// NextIntn returns a value in [0, modulo], upper bound INCLUDED.
//
// This is not a uniform draw over [0, modulo) and must not be "fixed": every
// shuffle in the optimizer depends on the inclusive bound, and stored seeds
// only reproduce their partitions with it. NextIntn panics if modulo < 0.
func (r *Lcg) NextIntn(modulo int) int {
	if modulo < 0 {
		panic("infomap: negative modulo")
	}
	return r.NextInt() % (modulo + 1)
}

// NextDouble returns a value in [0, 1).
func (r *Lcg) NextDouble() float64 {
	return float64(r.advance()) / float64(lcgModulus)
}
