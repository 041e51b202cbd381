package network

import "fmt"

// HardUpdate copies every live network parameter into the target
// network. The live network is never modified.
func HardUpdate(target, live NeuralNet) error {
	if err := SoftUpdate(target, live, 1.0); err != nil {
		return fmt.Errorf("hardupdate: %v", err)
	}
	return nil
}

// SoftUpdate moves every target parameter toward the corresponding
// live parameter by the Polyak step
//
//	target = tau*live + (1-tau)*target
//
// for tau in [0, 1]. A tau of 1 is equivalent to HardUpdate; a tau of
// 0 leaves the target untouched. The live network is never modified.
func SoftUpdate(target, live NeuralNet, tau float64) error {
	if tau < 0.0 || tau > 1.0 {
		return fmt.Errorf("softupdate: tau out of range "+
			"\n\twant(tau in [0, 1])\n\thave(%v)", tau)
	}

	targetParams := target.Parameters()
	liveParams := live.Parameters()
	if len(targetParams) != len(liveParams) {
		return fmt.Errorf("softupdate: parameter lists do not align "+
			"\n\twant(%v tensors)\n\thave(%v)", len(liveParams),
			len(targetParams))
	}

	for i := range targetParams {
		dst := targetParams[i].Data().([]float64)
		src := liveParams[i].Data().([]float64)
		if len(dst) != len(src) {
			return fmt.Errorf("softupdate: parameter %v sizes do not "+
				"align \n\twant(%v)\n\thave(%v)", i, len(src), len(dst))
		}

		for j := range dst {
			dst[j] = tau*src[j] + (1.0-tau)*dst[j]
		}
	}
	return nil
}
