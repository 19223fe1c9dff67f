package jpegls

import "fmt"

const maxSegmentLength = 0xFFFF

func (e *Encoder) writeMarker(marker int) error {
	if err := e.bw.w.WriteByte(0xFF); err != nil {
		return err
	}
	return e.bw.w.WriteByte(byte(marker & 0xFF))
}

func (e *Encoder) writeWord(v int) error {
	if err := e.bw.w.WriteByte(byte(v >> 8)); err != nil {
		return err
	}
	return e.bw.w.WriteByte(byte(v))
}

// writeSegment writes a marker segment; the length field counts itself.
func (e *Encoder) writeSegment(marker int, data []byte) error {
	if len(data)+2 > maxSegmentLength {
		return fmt.Errorf("%w: segment %04X of %d bytes", ErrInvalidArgument, marker, len(data))
	}
	if err := e.writeMarker(marker); err != nil {
		return err
	}
	if err := e.writeWord(len(data) + 2); err != nil {
		return err
	}
	_, err := e.bw.w.Write(data)
	return err
}

// writeSpiffHeader writes the SPIFF header, its directory entries and the
// end of directory.
func (e *Encoder) writeSpiffHeader(h *SpiffHeader, entries []SpiffEntry) error {
	if err := e.writeSegment(MarkerAPP8, h.marshal()); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := e.writeSpiffEntry(entry.Tag, entry.Data); err != nil {
			return err
		}
	}
	return e.writeSegment(MarkerAPP8, spiffEndOfDirectory)
}

func (e *Encoder) writeSpiffEntry(tag SpiffEntryTag, data []byte) error {
	return e.writeSegment(MarkerAPP8, SpiffEntry{Tag: tag, Data: data}.marshal())
}

// writeJfif writes a JFIF APP0 segment.
func (e *Encoder) writeJfif(p *JfifParameters) error {
	return e.writeSegment(MarkerAPP0, p.marshal())
}

// writeColorTransform writes the "mrfx" APP8 segment that signals an HP
// colour transform.
func (e *Encoder) writeColorTransform(c ColorTransformation) error {
	return e.writeSegment(MarkerAPP8, []byte{'m', 'r', 'f', 'x', byte(c)})
}

// writePresetParameters writes an LSE type 1 segment.
func (e *Encoder) writePresetParameters(p PresetCodingParameters) error {
	data := []byte{presetTypeCodingParameters}
	for _, v := range []int{p.MaximumSampleValue, p.Threshold1, p.Threshold2, p.Threshold3, p.ResetValue} {
		data = append(data, byte(v>>8), byte(v))
	}
	return e.writeSegment(MarkerLSE, data)
}

// writeStartOfFrame writes SOF55 with component ids 1..Nf, H=V=1 and Tq=0.
func (e *Encoder) writeStartOfFrame(f FrameInfo) error {
	data := []byte{
		byte(f.BitsPerSample),
		byte(f.Height >> 8), byte(f.Height),
		byte(f.Width >> 8), byte(f.Width),
		byte(f.ComponentCount),
	}
	for i := 0; i < f.ComponentCount; i++ {
		data = append(data, byte(i+1), 0x11, 0x00)
	}
	return e.writeSegment(MarkerSOF55, data)
}

// writeStartOfScan writes an SOS segment for count components starting at
// componentID and returns the id of the next component.
func (e *Encoder) writeStartOfScan(componentID, count, near int, ilv InterleaveMode) (int, error) {
	data := []byte{byte(count)}
	for i := 0; i < count; i++ {
		data = append(data, byte(componentID), 0x00) // id, mapping table
		componentID++
	}
	data = append(data, byte(near), byte(ilv), 0x00) // NEAR, ILV, Al=0 Ah=0
	return componentID, e.writeSegment(MarkerSOS, data)
}
