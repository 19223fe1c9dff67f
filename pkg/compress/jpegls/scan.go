package jpegls

import (
	"fmt"
	"io"
	"log/slog"
)

// maxScanComponents is the most components a single scan can interleave.
const maxScanComponents = 4

// ScanParams describes one scan: the samples it covers and how they are coded.
type ScanParams struct {
	Width          int
	Height         int
	BitsPerSample  int
	ComponentCount int // components in this scan
	Interleave     InterleaveMode
	NearLossless   int
	Preset         PresetCodingParameters // zero fields select the defaults
}

// traits validates the parameters and returns the coding constants and the
// fully populated preset.
func (p ScanParams) traits() (Traits, PresetCodingParameters, error) {
	switch {
	case p.Width < 1:
		return Traits{}, PresetCodingParameters{}, fmt.Errorf("%w: %d", ErrInvalidParameterWidth, p.Width)
	case p.Height < 1:
		return Traits{}, PresetCodingParameters{}, fmt.Errorf("%w: %d", ErrInvalidParameterHeight, p.Height)
	case p.BitsPerSample < MinBitsPerSample || p.BitsPerSample > MaxBitsPerSample:
		return Traits{}, PresetCodingParameters{}, fmt.Errorf("%w: %d", ErrInvalidParameterBitsPerSample, p.BitsPerSample)
	case p.ComponentCount < 1 || p.ComponentCount > maxScanComponents:
		return Traits{}, PresetCodingParameters{}, fmt.Errorf("%w: %d in scan", ErrInvalidParameterComponentCount, p.ComponentCount)
	case p.Interleave > InterleaveSample || (p.Interleave == InterleaveNone && p.ComponentCount != 1):
		return Traits{}, PresetCodingParameters{}, fmt.Errorf("%w: %d with %d components", ErrInvalidParameterInterleaveMode, p.Interleave, p.ComponentCount)
	}

	preset, err := p.Preset.Validate(1<<p.BitsPerSample-1, p.NearLossless)
	if err != nil {
		return Traits{}, PresetCodingParameters{}, err
	}
	t, err := NewTraits(preset.MaximumSampleValue, p.NearLossless, preset.ResetValue)
	if err != nil {
		return Traits{}, PresetCodingParameters{}, err
	}
	return t, preset, nil
}

type scanStats struct {
	regular       int
	run           int
	interruptions int
}

// scanCoder is the state shared by the encoder and decoder of one scan.
// Lines are padded with one sample on each side; sample x of a line lives
// at (x+1)*stride.
type scanCoder struct {
	traits Traits
	model  *ContextModel
	width  int
	comps  int
	ilv    InterleaveMode
	stride int

	runs      []runState // one per line buffer
	prev, cur [][]int    // one line pair per component, or one for sample interleave
	qs, signs []int
	line      []int // pixel interleaved exchange line
	stats     scanStats
}

func newScanCoder(p ScanParams) (scanCoder, error) {
	t, preset, err := p.traits()
	if err != nil {
		return scanCoder{}, err
	}
	planes, stride := p.ComponentCount, 1
	if p.Interleave == InterleaveSample {
		planes, stride = 1, p.ComponentCount
	}
	s := scanCoder{
		traits: t,
		model:  NewContextModel(t, preset),
		width:  p.Width,
		comps:  p.ComponentCount,
		ilv:    p.Interleave,
		stride: stride,
		runs:   make([]runState, planes),
		prev:   make([][]int, planes),
		cur:    make([][]int, planes),
		qs:     make([]int, p.ComponentCount),
		signs:  make([]int, p.ComponentCount),
		line:   make([]int, p.Width*p.ComponentCount),
	}
	for i := 0; i < planes; i++ {
		s.prev[i] = make([]int, (p.Width+2)*stride)
		s.cur[i] = make([]int, (p.Width+2)*stride)
	}
	return s, nil
}

// nextLine swaps the line pairs and sets up the edge samples: the right
// pad repeats the last sample of the previous line and the left pad of the
// current line repeats the first sample of the previous line.
func (s *scanCoder) nextLine() {
	for i := range s.cur {
		s.prev[i], s.cur[i] = s.cur[i], s.prev[i]
		prev, cur := s.prev[i], s.cur[i]
		for c := 0; c < s.stride; c++ {
			prev[(s.width+1)*s.stride+c] = prev[s.width*s.stride+c]
			cur[c] = prev[s.stride+c]
		}
	}
}

func (s *scanCoder) logStats(op string, height int) {
	slog.Debug("jpegls scan",
		"op", op,
		"width", s.width,
		"height", height,
		"components", s.comps,
		"interleave", s.ilv,
		"near", s.traits.Near,
		"regular", s.stats.regular,
		"run", s.stats.run,
		"interruptions", s.stats.interruptions)
}

// EncodeScan codes one scan of pixel interleaved samples and writes the
// entropy coded segment (without markers) to w.
func EncodeScan(w io.Writer, p ScanParams, samples []uint16) error {
	bw := NewBitWriter(w)
	lp := newBufferLines(samples, p.Width, p.ComponentCount, 0, p.ComponentCount)
	if _, err := encodeScan(bw, p, lp); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodeScan decodes one entropy coded segment from src into dst (pixel
// interleaved) and returns the number of bytes consumed. Decoding stops at
// the first marker in src.
func DecodeScan(src []byte, p ScanParams, dst []uint16) (int, error) {
	br := NewBitReader(src)
	lp := newBufferLines(dst, p.Width, p.ComponentCount, 0, p.ComponentCount)
	if _, err := decodeScan(br, p, lp); err != nil {
		return 0, err
	}
	return br.Position(), nil
}

type scanEncoder struct {
	scanCoder
	bw *BitWriter
}

func encodeScan(bw *BitWriter, p ScanParams, lp lineProcessor) (scanStats, error) {
	sc, err := newScanCoder(p)
	if err != nil {
		return scanStats{}, err
	}
	e := &scanEncoder{scanCoder: sc, bw: bw}
	for y := 0; y < p.Height; y++ {
		if err := lp.newLineRequested(e.line); err != nil {
			return e.stats, fmt.Errorf("line %d: %w", y, err)
		}
		for _, v := range e.line {
			if v > e.traits.MaxVal {
				return e.stats, fmt.Errorf("%w: sample %d on line %d exceeds maximum sample value %d", ErrInvalidArgument, v, y, e.traits.MaxVal)
			}
		}
		e.nextLine()
		if e.ilv == InterleaveSample {
			copy(e.cur[0][e.comps:], e.line)
			if err := e.encodeSampleLine(e.cur[0], e.prev[0]); err != nil {
				return e.stats, err
			}
			continue
		}
		for c := 0; c < e.comps; c++ {
			cur := e.cur[c]
			for x := 0; x < e.width; x++ {
				cur[x+1] = e.line[x*e.comps+c]
			}
			if err := e.encodeLine(&e.runs[c], cur, e.prev[c]); err != nil {
				return e.stats, err
			}
		}
	}
	e.logStats("encode", p.Height)
	return e.stats, bw.EndScan()
}

// encodeLine codes one line of a single component.
func (e *scanEncoder) encodeLine(run *runState, cur, prev []int) error {
	rb := prev[0]
	rd := prev[1]
	for index := 0; index < e.width; {
		ra := cur[index]
		rc := rb
		rb = rd
		rd = prev[index+2]

		q, s := e.model.GetContextIndex(rd-rb, rb-rc, rc-ra)
		if q != 0 {
			v, err := e.encodeRegular(q, s, cur[index+1], PredictMED(ra, rb, rc))
			if err != nil {
				return err
			}
			cur[index+1] = v
			index++
			continue
		}

		n, err := e.encodeRunMode(run, cur, prev, index)
		if err != nil {
			return err
		}
		index += n
		rb = prev[index]
		rd = prev[index+1]
	}
	return nil
}

// encodeRegular codes x in context q and returns the reconstructed sample.
func (e *scanEncoder) encodeRegular(q, s, x, predicted int) (int, error) {
	ctx := &e.model.regular[q]
	k := ctx.golombCode()
	px := e.traits.CorrectPrediction(predicted + s*ctx.C)
	errVal := e.traits.ComputeErrorValue(s * (x - px))
	mapped := mapErrorValue(ctx.errorCorrection(k|e.traits.Near) ^ errVal)
	if err := e.bw.WriteGolomb(k, mapped, e.traits.Limit, e.traits.Qbpp); err != nil {
		return 0, err
	}
	ctx.update(errVal, e.traits.Near, e.traits.Reset)
	e.stats.regular++
	return e.traits.ComputeReconstructedSample(px, s*errVal), nil
}

// encodeRunMode extends a run from index while samples stay within NEAR of
// the sample to the left, then codes the run and the interruption sample.
// It returns the number of samples consumed.
func (e *scanEncoder) encodeRunMode(run *runState, cur, prev []int, index int) (int, error) {
	remaining := e.width - index
	ra := cur[index]
	runLength := 0
	for e.traits.IsNear(cur[index+1+runLength], ra) {
		cur[index+1+runLength] = ra
		runLength++
		if runLength == remaining {
			break
		}
	}
	e.stats.run += runLength

	if err := e.encodeRunPixels(run, runLength, runLength == remaining); err != nil {
		return 0, err
	}
	if runLength == remaining {
		return runLength, nil
	}

	pos := index + runLength + 1
	v, err := e.encodeRunInterruptionSample(run, cur[pos], ra, prev[pos])
	if err != nil {
		return 0, err
	}
	cur[pos] = v
	run.decrement()
	e.stats.interruptions++
	return runLength + 1, nil
}

// encodeSampleLine codes one line of pixel interleaved samples. Run mode
// applies only when every component sits in a flat context.
func (e *scanEncoder) encodeSampleLine(cur, prev []int) error {
	n := e.comps
	run := &e.runs[0]
	for index := 0; index < e.width; {
		p := (index + 1) * n
		flat := true
		for c := 0; c < n; c++ {
			ra, rb, rc, rd := cur[p-n+c], prev[p+c], prev[p-n+c], prev[p+n+c]
			e.qs[c], e.signs[c] = e.model.GetContextIndex(rd-rb, rb-rc, rc-ra)
			if e.qs[c] != 0 {
				flat = false
			}
		}
		if flat {
			k, err := e.encodeRunModeSamples(run, cur, prev, index)
			if err != nil {
				return err
			}
			index += k
			continue
		}
		for c := 0; c < n; c++ {
			ra, rb, rc := cur[p-n+c], prev[p+c], prev[p-n+c]
			v, err := e.encodeRegular(e.qs[c], e.signs[c], cur[p+c], PredictMED(ra, rb, rc))
			if err != nil {
				return err
			}
			cur[p+c] = v
		}
		index++
	}
	return nil
}

func (e *scanEncoder) encodeRunModeSamples(run *runState, cur, prev []int, index int) (int, error) {
	n := e.comps
	remaining := e.width - index
	ra := cur[index*n : index*n+n]
	runLength := 0
	for e.pixelNear(cur[(index+1+runLength)*n:], ra) {
		copy(cur[(index+1+runLength)*n:], ra)
		runLength++
		if runLength == remaining {
			break
		}
	}
	e.stats.run += runLength * n

	if err := e.encodeRunPixels(run, runLength, runLength == remaining); err != nil {
		return 0, err
	}
	if runLength == remaining {
		return runLength, nil
	}

	p := (index + runLength + 1) * n
	for c := 0; c < n; c++ {
		rb := prev[p+c]
		s := sign(rb - ra[c])
		errVal := e.traits.ComputeErrorValue(s * (cur[p+c] - rb))
		if err := e.encodeRunInterruptionError(run, &e.model.run[0], errVal); err != nil {
			return 0, err
		}
		cur[p+c] = e.traits.ComputeReconstructedSample(rb, errVal*s)
	}
	run.decrement()
	e.stats.interruptions++
	return runLength + 1, nil
}

func (s *scanCoder) pixelNear(x, ra []int) bool {
	for c := range ra {
		if !s.traits.IsNear(x[c], ra[c]) {
			return false
		}
	}
	return true
}

type scanDecoder struct {
	scanCoder
	br *BitReader
}

func decodeScan(br *BitReader, p ScanParams, lp lineProcessor) (scanStats, error) {
	sc, err := newScanCoder(p)
	if err != nil {
		return scanStats{}, err
	}
	d := &scanDecoder{scanCoder: sc, br: br}
	for y := 0; y < p.Height; y++ {
		d.nextLine()
		if d.ilv == InterleaveSample {
			if err := d.decodeSampleLine(d.cur[0], d.prev[0]); err != nil {
				return d.stats, fmt.Errorf("line %d: %w", y, err)
			}
			copy(d.line, d.cur[0][d.comps:])
		} else {
			for c := 0; c < d.comps; c++ {
				cur := d.cur[c]
				if err := d.decodeLine(&d.runs[c], cur, d.prev[c]); err != nil {
					return d.stats, fmt.Errorf("line %d: %w", y, err)
				}
				for x := 0; x < d.width; x++ {
					d.line[x*d.comps+c] = cur[x+1]
				}
			}
		}
		if err := lp.newLineDecoded(d.line); err != nil {
			return d.stats, fmt.Errorf("line %d: %w", y, err)
		}
	}
	d.logStats("decode", p.Height)
	return d.stats, br.EndScan()
}

func (d *scanDecoder) decodeLine(run *runState, cur, prev []int) error {
	rb := prev[0]
	rd := prev[1]
	for index := 0; index < d.width; {
		ra := cur[index]
		rc := rb
		rb = rd
		rd = prev[index+2]

		q, s := d.model.GetContextIndex(rd-rb, rb-rc, rc-ra)
		if q != 0 {
			v, err := d.decodeRegular(q, s, PredictMED(ra, rb, rc))
			if err != nil {
				return err
			}
			cur[index+1] = v
			index++
			continue
		}

		n, err := d.decodeRunMode(run, cur, prev, index)
		if err != nil {
			return err
		}
		index += n
		rb = prev[index]
		rd = prev[index+1]
	}
	return nil
}

func (d *scanDecoder) decodeRegular(q, s, predicted int) (int, error) {
	ctx := &d.model.regular[q]
	k := ctx.golombCode()
	px := d.traits.CorrectPrediction(predicted + s*ctx.C)

	var errVal int
	var code golombCode
	if k < len(decodingTables) {
		code = decodingTables[k][d.br.PeekByte()]
	}
	if code.length != 0 {
		if err := d.br.Skip(code.length); err != nil {
			return 0, err
		}
		errVal = code.value
	} else {
		mapped, err := d.br.ReadGolomb(k, d.traits.Limit, d.traits.Qbpp)
		if err != nil {
			return 0, err
		}
		errVal = unmapErrorValue(mapped)
		if abs(errVal) > 65535 {
			return 0, fmt.Errorf("%w: error value %d", ErrInvalidEncodedData, errVal)
		}
	}
	if k == 0 {
		errVal ^= ctx.errorCorrection(d.traits.Near)
	}
	ctx.update(errVal, d.traits.Near, d.traits.Reset)
	d.stats.regular++
	return d.traits.ComputeReconstructedSample(px, s*errVal), nil
}

func (d *scanDecoder) decodeRunMode(run *runState, cur, prev []int, index int) (int, error) {
	ra := cur[index]
	runLength, err := d.decodeRunPixels(run, index)
	if err != nil {
		return 0, err
	}
	for i := 0; i < runLength; i++ {
		cur[index+1+i] = ra
	}
	d.stats.run += runLength
	if index+runLength == d.width {
		return runLength, nil
	}

	pos := index + runLength + 1
	v, err := d.decodeRunInterruptionSample(run, ra, prev[pos])
	if err != nil {
		return 0, err
	}
	cur[pos] = v
	run.decrement()
	d.stats.interruptions++
	return runLength + 1, nil
}

func (d *scanDecoder) decodeSampleLine(cur, prev []int) error {
	n := d.comps
	run := &d.runs[0]
	for index := 0; index < d.width; {
		p := (index + 1) * n
		flat := true
		for c := 0; c < n; c++ {
			ra, rb, rc, rd := cur[p-n+c], prev[p+c], prev[p-n+c], prev[p+n+c]
			d.qs[c], d.signs[c] = d.model.GetContextIndex(rd-rb, rb-rc, rc-ra)
			if d.qs[c] != 0 {
				flat = false
			}
		}
		if flat {
			k, err := d.decodeRunModeSamples(run, cur, prev, index)
			if err != nil {
				return err
			}
			index += k
			continue
		}
		for c := 0; c < n; c++ {
			ra, rb, rc := cur[p-n+c], prev[p+c], prev[p-n+c]
			v, err := d.decodeRegular(d.qs[c], d.signs[c], PredictMED(ra, rb, rc))
			if err != nil {
				return err
			}
			cur[p+c] = v
		}
		index++
	}
	return nil
}

func (d *scanDecoder) decodeRunModeSamples(run *runState, cur, prev []int, index int) (int, error) {
	n := d.comps
	ra := cur[index*n : index*n+n]
	runLength, err := d.decodeRunPixels(run, index)
	if err != nil {
		return 0, err
	}
	for i := 0; i < runLength; i++ {
		copy(cur[(index+1+i)*n:], ra)
	}
	d.stats.run += runLength * n
	if index+runLength == d.width {
		return runLength, nil
	}

	p := (index + runLength + 1) * n
	for c := 0; c < n; c++ {
		errVal, err := d.decodeRunInterruptionError(run, &d.model.run[0])
		if err != nil {
			return 0, err
		}
		rb := prev[p+c]
		cur[p+c] = d.traits.ComputeReconstructedSample(rb, errVal*sign(rb-ra[c]))
	}
	run.decrement()
	d.stats.interruptions++
	return runLength + 1, nil
}
