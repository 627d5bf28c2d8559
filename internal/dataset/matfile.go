package dataset

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MAT-file level 5 data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// MAT-file array classes.
const (
	mxDOUBLE = 6
	mxUINT8  = 9
)

const matHeaderSize = 128

// maxPrealloc caps the buffer reserved up front for one element.
const maxPrealloc = 16 << 20

// matVar is a numeric array read from a MAT-file.
//
// Data keeps the stored element type; MATLAB may store a double array with a
// narrower type when every value fits.
type matVar struct {
	Name  string
	Class uint8
	Dims  []int

	dataType uint32
	data     []byte
	order    binary.ByteOrder
}

// Len returns the number of elements.
func (v *matVar) Len() int {
	n := 1
	for _, d := range v.Dims {
		n *= d
	}
	return n
}

// Uint8s returns the elements as bytes. Only byte-sized storage is accepted.
func (v *matVar) Uint8s() ([]uint8, error) {
	if v.dataType != miUINT8 && v.dataType != miINT8 {
		return nil, fmt.Errorf("%w: %s stored as type %d, want uint8", ErrMalformed, v.Name, v.dataType)
	}
	if len(v.data) < v.Len() {
		return nil, fmt.Errorf("%w: %s has %d bytes for %d elements", ErrMalformed, v.Name, len(v.data), v.Len())
	}
	return v.data[:v.Len()], nil
}

// Float64s converts the elements to float64 whatever their storage type.
func (v *matVar) Float64s() ([]float64, error) {
	size, ok := matTypeSize(v.dataType)
	if !ok {
		return nil, fmt.Errorf("%w: %s has non-numeric type %d", ErrMalformed, v.Name, v.dataType)
	}
	n := v.Len()
	if len(v.data) < n*size {
		return nil, fmt.Errorf("%w: %s has %d bytes for %d elements", ErrMalformed, v.Name, len(v.data), n)
	}

	out := make([]float64, n)
	for i := range out {
		b := v.data[i*size : (i+1)*size]
		switch v.dataType {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(v.order.Uint16(b)))
		case miUINT16:
			out[i] = float64(v.order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(v.order.Uint32(b)))
		case miUINT32:
			out[i] = float64(v.order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(v.order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(v.order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(v.order.Uint64(b)))
		case miUINT64:
			out[i] = float64(v.order.Uint64(b))
		}
	}
	return out, nil
}

func matTypeSize(t uint32) (int, bool) {
	switch t {
	case miINT8, miUINT8:
		return 1, true
	case miINT16, miUINT16:
		return 2, true
	case miINT32, miUINT32, miSINGLE:
		return 4, true
	case miDOUBLE, miINT64, miUINT64:
		return 8, true
	default:
		return 0, false
	}
}

// readMAT reads every numeric array of a level 5 MAT-file, keyed by name.
// Compressed elements are inflated; non-numeric arrays are skipped.
func readMAT(r io.Reader) (map[string]*matVar, error) {
	header := make([]byte, matHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}

	var order binary.ByteOrder
	switch string(header[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: not a level 5 MAT-file", ErrMalformed)
	}

	vars := make(map[string]*matVar)
	if err := readElements(r, order, vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// readElements decodes top-level data elements until EOF.
func readElements(r io.Reader, order binary.ByteOrder, vars map[string]*matVar) error {
	for {
		typ, payload, err := readElement(r, order)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("%w: compressed element: %v", ErrMalformed, err)
			}
			err = readElements(zr, order, vars)
			zr.Close()
			if err != nil {
				return err
			}
		case miMATRIX:
			v, err := parseMatrix(payload, order)
			if err != nil {
				return err
			}
			if v != nil {
				vars[v.Name] = v
			}
		}
	}
}

// readElement reads one tagged element, handling the small data element
// format and the 8-byte padding of regular elements.
func readElement(r io.Reader, order binary.ByteOrder) (uint32, []byte, error) {
	var tag [8]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("%w: truncated tag", ErrMalformed)
		}
		return 0, nil, err
	}

	first := order.Uint32(tag[:4])
	if size := first >> 16; size != 0 {
		if size > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes", ErrMalformed, size)
		}
		return first & 0xffff, append([]byte(nil), tag[4:4+size]...), nil
	}

	typ := first
	size := order.Uint32(tag[4:])
	payload, err := readPayload(r, size)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: element of type %d: %v", ErrMalformed, typ, err)
	}

	if pad := (8 - size%8) % 8; pad != 0 && typ != miCOMPRESSED {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil && !errors.Is(err, io.EOF) {
			return 0, nil, fmt.Errorf("%w: padding: %v", ErrMalformed, err)
		}
	}
	return typ, payload, nil
}

// readPayload reads exactly size bytes. The buffer grows with the bytes
// actually read, so a corrupt size cannot reserve more than maxPrealloc.
func readPayload(r io.Reader, size uint32) ([]byte, error) {
	if l, ok := r.(interface{ Len() int }); ok && int64(size) > int64(l.Len()) {
		return nil, fmt.Errorf("%d bytes declared, %d remain", size, l.Len())
	}

	var buf bytes.Buffer
	buf.Grow(int(min(size, maxPrealloc)))
	n, err := buf.ReadFrom(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, err
	}
	if n < int64(size) {
		return nil, io.ErrUnexpectedEOF
	}
	return buf.Bytes(), nil
}

// parseMatrix decodes a miMATRIX payload: flags, dimensions, name, real part.
// It returns nil for arrays that are not numeric.
func parseMatrix(payload []byte, order binary.ByteOrder) (*matVar, error) {
	r := bytes.NewReader(payload)

	typ, flags, err := readElement(r, order)
	if err != nil || typ != miUINT32 || len(flags) < 8 {
		return nil, fmt.Errorf("%w: array flags", ErrMalformed)
	}
	class := flags[0]
	if order == binary.BigEndian {
		class = flags[3]
	}
	if class < mxDOUBLE || class > 15 {
		return nil, nil
	}

	typ, rawDims, err := readElement(r, order)
	if err != nil || typ != miINT32 || len(rawDims)%4 != 0 {
		return nil, fmt.Errorf("%w: dimensions", ErrMalformed)
	}
	dims := make([]int, len(rawDims)/4)
	elements := 1
	for i := range dims {
		d := int(int32(order.Uint32(rawDims[i*4:])))
		if d < 0 || (d > 0 && elements > math.MaxInt32/d) {
			return nil, fmt.Errorf("%w: dimension %d of size %d", ErrMalformed, i, d)
		}
		dims[i] = d
		elements *= d
	}

	typ, name, err := readElement(r, order)
	if err != nil || typ != miINT8 {
		return nil, fmt.Errorf("%w: array name", ErrMalformed)
	}

	dataType, data, err := readElement(r, order)
	if err != nil {
		return nil, fmt.Errorf("%w: real part of %s: %v", ErrMalformed, name, err)
	}

	return &matVar{
		Name:     string(name),
		Class:    class,
		Dims:     dims,
		dataType: dataType,
		data:     data,
		order:    order,
	}, nil
}
