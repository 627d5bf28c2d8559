package dataset

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.Backend

// pixel is the deterministic value of channel c, row h, column w of sample n.
func pixel(n, c, h, w int) uint8 {
	return uint8((n*31 + c*7 + h*3 + w) % 256)
}

// cifarRecords encodes labels as CIFAR records with format's label layout.
func cifarRecords(format cifarFormat, offset int, labels ...int) []byte {
	var buf bytes.Buffer
	for i, label := range labels {
		head := make([]byte, format.labelBytes)
		head[format.labelIndex] = byte(label)
		buf.Write(head)
		for c := 0; c < Channels; c++ {
			for h := 0; h < Height; h++ {
				for w := 0; w < Width; w++ {
					buf.WriteByte(pixel(offset+i, c, h, w))
				}
			}
		}
	}
	return buf.Bytes()
}

// cifar10Files returns the CIFAR-10 layout with two samples per training
// batch and three test samples, keyed by path relative to the data root.
func cifar10Files() map[string][]byte {
	files := map[string][]byte{
		filepath.Join(cifar10Dir, "test_batch.bin"): cifarRecords(cifar10Format, 0, 7, 8, 9),
	}
	for i := 1; i <= 5; i++ {
		name := filepath.Join(cifar10Dir, fmt.Sprintf("data_batch_%d.bin", i))
		files[name] = cifarRecords(cifar10Format, 2*(i-1), i-1, i)
	}
	return files
}

func writeFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o600))
	}
}

func tarGz(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, data := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     filepath.ToSlash(name),
			Mode:     0o644,
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// matWriter builds little-endian level 5 MAT-files.
type matWriter struct {
	buf bytes.Buffer
}

func newMATWriter() *matWriter {
	w := &matWriter{}
	header := make([]byte, matHeaderSize)
	copy(header, "MATLAB 5.0 MAT-file, test fixture")
	binary.LittleEndian.PutUint16(header[124:], 0x0100)
	copy(header[126:], "IM")
	w.buf.Write(header)
	return w
}

func element(typ uint32, payload []byte) []byte {
	var buf bytes.Buffer
	if len(payload) <= 4 && typ != miMATRIX && typ != miCOMPRESSED {
		var tag [8]byte
		binary.LittleEndian.PutUint32(tag[:4], uint32(len(payload))<<16|typ)
		copy(tag[4:], payload)
		return tag[:]
	}
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{typ, uint32(len(payload))})
	buf.Write(payload)
	if pad := (8 - len(payload)%8) % 8; pad != 0 && typ != miCOMPRESSED {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}

func matrix(name string, class uint8, dims []int, dataType uint32, data []byte) []byte {
	flags := make([]byte, 8)
	flags[0] = class
	rawDims := make([]byte, 4*len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint32(rawDims[i*4:], uint32(d))
	}

	var payload bytes.Buffer
	payload.Write(element(miUINT32, flags))
	payload.Write(element(miINT32, rawDims))
	payload.Write(element(miINT8, []byte(name)))
	payload.Write(element(dataType, data))
	return element(miMATRIX, payload.Bytes())
}

func (w *matWriter) add(t *testing.T, compress bool, m []byte) {
	t.Helper()
	if !compress {
		w.buf.Write(m)
		return
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(m)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	w.buf.Write(element(miCOMPRESSED, z.Bytes()))
}

// svhnMAT encodes an SVHN file whose X holds pixel(n, c, h, w) in
// column-major order and whose y holds labels, with y stored as doubles.
func svhnMAT(t *testing.T, compress bool, labels ...float64) []byte {
	t.Helper()
	n := len(labels)
	x := make([]byte, n*SampleBytes)
	for s := 0; s < n; s++ {
		for c := 0; c < Channels; c++ {
			for w := 0; w < Width; w++ {
				for h := 0; h < Height; h++ {
					x[h+Height*w+PlaneSize*c+SampleBytes*s] = pixel(s, c, h, w)
				}
			}
		}
	}
	y := make([]byte, 8*n)
	for i, label := range labels {
		binary.LittleEndian.PutUint64(y[i*8:], math.Float64bits(label))
	}

	mw := newMATWriter()
	mw.add(t, compress, matrix("X", mxUINT8, []int{Height, Width, Channels, n}, miUINT8, x))
	mw.add(t, compress, matrix("y", mxDOUBLE, []int{n, 1}, miDOUBLE, y))
	return mw.buf.Bytes()
}

// expectSample checks that s holds pixel(n, ...) in channel-major order.
func expectSample(t *testing.T, s []uint8, n int) {
	t.Helper()
	require.Len(t, s, SampleBytes)
	for c := 0; c < Channels; c++ {
		for h := 0; h < Height; h++ {
			for w := 0; w < Width; w++ {
				if got, want := s[c*PlaneSize+h*Width+w], pixel(n, c, h, w); got != want {
					t.Fatalf("sample %d c=%d h=%d w=%d: got %d, want %d", n, c, h, w, got, want)
				}
			}
		}
	}
}
