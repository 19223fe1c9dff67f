package jpegls

// PredictMED implements the Median Edge Detection predictor.
// Ra: Left
// Rb: Above
// Rc: Above-Left
func PredictMED(Ra, Rb, Rc int) int {
	if Rc >= max(Ra, Rb) {
		return min(Ra, Rb)
	}
	if Rc <= min(Ra, Rb) {
		return max(Ra, Rb)
	}
	return Ra + Rb - Rc
}

// clip clamps value to range [lo, hi]
func clip(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign is 1 for zero and positive values.
func sign(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}
