package jpegls

import "fmt"

// J is the run-length order table (ISO 14495-1 Table A.3). A run segment
// at run index i covers 2^J[i] samples.
var J = [32]int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// runModeContext holds the statistics of a run-interruption context.
// Type 1 is used when the samples left of and above the interruption are
// within NEAR of each other, type 0 otherwise.
type runModeContext struct {
	runInterruptionType int
	A                   int
	N                   int
	Nn                  int // occurrences of negative errors
}

func newRunModeContext(runInterruptionType, rng int) runModeContext {
	return runModeContext{
		runInterruptionType: runInterruptionType,
		A:                   max(2, (rng+32)/64),
		N:                   1,
	}
}

func (c *runModeContext) golombCode() int {
	temp := c.A + (c.N>>1)*c.runInterruptionType
	k := 0
	for c.N<<k < temp {
		k++
	}
	return k
}

// computeMap decides the map bit of A.7.2.1.
func (c *runModeContext) computeMap(errVal, k int) bool {
	switch {
	case k == 0 && errVal > 0 && 2*c.Nn < c.N:
		return true
	case errVal < 0 && 2*c.Nn >= c.N:
		return true
	case errVal < 0 && k != 0:
		return true
	}
	return false
}

// computeErrorValue inverts the mapping for the decoder; temp is
// EMErrval + RItype.
func (c *runModeContext) computeErrorValue(temp, k int) int {
	mapBit := temp & 1
	errAbs := (temp + mapBit) / 2
	if (k != 0 || 2*c.Nn >= c.N) == (mapBit != 0) {
		return -errAbs
	}
	return errAbs
}

func (c *runModeContext) update(errVal, eMapped, reset int) {
	if errVal < 0 {
		c.Nn++
	}
	c.A += (eMapped + 1 - c.runInterruptionType) >> 1
	if c.N == reset {
		c.A >>= 1
		c.N >>= 1
		c.Nn >>= 1
	}
	c.N++
}

// runState is the run index of a component. It survives across lines and
// is only reset at the start of a scan.
type runState struct {
	index int
}

func (r *runState) increment() {
	if r.index < 31 {
		r.index++
	}
}

func (r *runState) decrement() {
	if r.index > 0 {
		r.index--
	}
}

// encodeRunPixels writes the length of a run. endOfLine marks a run that
// reached the last sample of the line, which needs no interruption sample.
func (e *scanEncoder) encodeRunPixels(run *runState, runLength int, endOfLine bool) error {
	for runLength >= 1<<J[run.index] {
		if err := e.bw.WriteBits(1, 1); err != nil {
			return err
		}
		runLength -= 1 << J[run.index]
		run.increment()
	}

	if endOfLine {
		if runLength != 0 {
			return e.bw.WriteBits(1, 1)
		}
		return nil
	}
	// leading zero bit followed by the remainder
	return e.bw.WriteBits(uint32(runLength), J[run.index]+1)
}

func (e *scanEncoder) encodeRunInterruptionError(run *runState, ctx *runModeContext, errVal int) error {
	k := ctx.golombCode()
	eMapped := 2*abs(errVal) - ctx.runInterruptionType
	if ctx.computeMap(errVal, k) {
		eMapped--
	}
	if err := e.bw.WriteGolomb(k, eMapped, e.traits.Limit-J[run.index]-1, e.traits.Qbpp); err != nil {
		return err
	}
	ctx.update(errVal, eMapped, e.traits.Reset)
	return nil
}

// encodeRunInterruptionSample codes the sample x that ended a run and
// returns its reconstructed value.
func (e *scanEncoder) encodeRunInterruptionSample(run *runState, x, ra, rb int) (int, error) {
	t := e.traits
	if abs(ra-rb) <= t.Near {
		errVal := t.ComputeErrorValue(x - ra)
		if err := e.encodeRunInterruptionError(run, &e.model.run[1], errVal); err != nil {
			return 0, err
		}
		return t.ComputeReconstructedSample(ra, errVal), nil
	}

	s := sign(rb - ra)
	errVal := t.ComputeErrorValue((x - rb) * s)
	if err := e.encodeRunInterruptionError(run, &e.model.run[0], errVal); err != nil {
		return 0, err
	}
	return t.ComputeReconstructedSample(rb, errVal*s), nil
}

// decodeRunPixels reads the length of a run starting at index and returns
// it. A run longer than the remaining pixels is invalid data.
func (d *scanDecoder) decodeRunPixels(run *runState, index int) (int, error) {
	pixelCount := d.width - index
	i := 0
	for {
		bit, err := d.br.ReadBit()
		if err != nil {
			return 0, err
		}
		if !bit {
			break
		}
		count := min(1<<J[run.index], pixelCount-i)
		i += count
		if count == 1<<J[run.index] {
			run.increment()
		}
		if i == pixelCount {
			return i, nil
		}
	}

	if J[run.index] > 0 {
		v, err := d.br.ReadBits(J[run.index])
		if err != nil {
			return 0, err
		}
		i += int(v)
	}
	if i > pixelCount {
		return 0, fmt.Errorf("%w: run of %d exceeds %d remaining pixels", ErrInvalidEncodedData, i, pixelCount)
	}
	return i, nil
}

func (d *scanDecoder) decodeRunInterruptionError(run *runState, ctx *runModeContext) (int, error) {
	k := ctx.golombCode()
	eMapped, err := d.br.ReadGolomb(k, d.traits.Limit-J[run.index]-1, d.traits.Qbpp)
	if err != nil {
		return 0, err
	}
	errVal := ctx.computeErrorValue(eMapped+ctx.runInterruptionType, k)
	ctx.update(errVal, eMapped, d.traits.Reset)
	return errVal, nil
}

func (d *scanDecoder) decodeRunInterruptionSample(run *runState, ra, rb int) (int, error) {
	t := d.traits
	if abs(ra-rb) <= t.Near {
		errVal, err := d.decodeRunInterruptionError(run, &d.model.run[1])
		if err != nil {
			return 0, err
		}
		return t.ComputeReconstructedSample(ra, errVal), nil
	}

	errVal, err := d.decodeRunInterruptionError(run, &d.model.run[0])
	if err != nil {
		return 0, err
	}
	return t.ComputeReconstructedSample(rb, errVal*sign(rb-ra)), nil
}
