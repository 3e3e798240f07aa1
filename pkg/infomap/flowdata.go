package infomap

// flowData is the flow carried by a leaf or aggregated by a module.
type flowData struct {
	flow      float64
	enterFlow float64
	exitFlow  float64

	// Used when teleportation is coded
	teleportWeight float64
	danglingFlow   float64
}

func (d *flowData) add(o flowData) {
	d.flow += o.flow
	d.enterFlow += o.enterFlow
	d.exitFlow += o.exitFlow
	d.teleportWeight += o.teleportWeight
	d.danglingFlow += o.danglingFlow
}

func (d *flowData) sub(o flowData) {
	d.flow -= o.flow
	d.enterFlow -= o.enterFlow
	d.exitFlow -= o.exitFlow
	d.teleportWeight -= o.teleportWeight
	d.danglingFlow -= o.danglingFlow
}

// clamp zeroes the negative residue that cancellation leaves in a module
// after members move out.
func (d *flowData) clamp() {
	d.flow = nonNegative(d.flow)
	d.enterFlow = nonNegative(d.enterFlow)
	d.exitFlow = nonNegative(d.exitFlow)
	d.teleportWeight = nonNegative(d.teleportWeight)
	d.danglingFlow = nonNegative(d.danglingFlow)
}

func nonNegative(x float64) float64 {
	return max(x, 0)
}
