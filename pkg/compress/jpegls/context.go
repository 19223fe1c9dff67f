package jpegls

const (
	// contextCount is the number of regular contexts after sign folding.
	contextCount = 365

	minC = -128
	maxC = 127
)

// regularContext holds the adaptive statistics of one regular-mode context.
type regularContext struct {
	A int // accumulated |error|
	B int // accumulated error, kept in (-N, 0]
	C int // bias correction
	N int // occurrences
}

func newRegularContext(rng int) regularContext {
	return regularContext{A: max(2, (rng+32)/64), N: 1}
}

// golombCode returns the Golomb-Rice parameter k: the smallest k with N*2^k >= A.
func (c *regularContext) golombCode() int {
	k := 0
	for c.N<<k < c.A {
		k++
	}
	return k
}

// errorCorrection returns -1 when the context is biased towards negative
// errors and k is 0, which flips the mapping of the error value.
// Callers pass k|NEAR so near-lossless scans never correct.
func (c *regularContext) errorCorrection(k int) int {
	if k != 0 {
		return 0
	}
	if 2*c.B+c.N-1 < 0 {
		return -1
	}
	return 0
}

// update applies the A.12 statistics update and A.13 bias adaptation.
func (c *regularContext) update(errVal, near, reset int) {
	c.A += abs(errVal)
	c.B += errVal * (2*near + 1)
	if c.N == reset {
		c.A >>= 1
		c.B >>= 1
		c.N >>= 1
	}
	c.N++

	if c.B+c.N <= 0 {
		c.B += c.N
		if c.B <= -c.N {
			c.B = -c.N + 1
		}
		if c.C > minC {
			c.C--
		}
	} else if c.B > 0 {
		c.B -= c.N
		if c.B > 0 {
			c.B = 0
		}
		if c.C < maxC {
			c.C++
		}
	}
}

// ContextModel maintains the state for context modeling during one scan:
// the gradient thresholds, the 365 regular contexts and the two
// run-interruption contexts.
type ContextModel struct {
	// Quantization thresholds
	T1, T2, T3 int

	near    int
	regular [contextCount]regularContext
	run     [2]runModeContext
}

// NewContextModel initializes fresh contexts for a scan coded with traits t
// and the (validated) preset thresholds.
func NewContextModel(t Traits, preset PresetCodingParameters) *ContextModel {
	cm := &ContextModel{
		T1:   preset.Threshold1,
		T2:   preset.Threshold2,
		T3:   preset.Threshold3,
		near: t.Near,
	}
	for i := range cm.regular {
		cm.regular[i] = newRegularContext(t.Range)
	}
	cm.run[0] = newRunModeContext(0, t.Range)
	cm.run[1] = newRunModeContext(1, t.Range)
	return cm
}

// QuantizeGradient maps a local gradient D to its region in [-4, 4].
func (cm *ContextModel) QuantizeGradient(D int) int {
	switch {
	case D <= -cm.T3:
		return -4
	case D <= -cm.T2:
		return -3
	case D <= -cm.T1:
		return -2
	case D < -cm.near:
		return -1
	case D <= cm.near:
		return 0
	case D < cm.T1:
		return 1
	case D < cm.T2:
		return 2
	case D < cm.T3:
		return 3
	}
	return 4
}

// GetContextIndex computes the context Q from gradients D1, D2, D3.
// Negative contexts are folded onto positive ones and reported with sign -1.
// Index 0 means the neighborhood is flat and run mode applies.
func (cm *ContextModel) GetContextIndex(D1, D2, D3 int) (int, int) {
	q := (cm.QuantizeGradient(D1)*9+cm.QuantizeGradient(D2))*9 + cm.QuantizeGradient(D3)
	if q < 0 {
		return -q, -1
	}
	return q, 1
}
