package tensor

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Checkpoint format: an 8-byte little-endian header length, a JSON header
// mapping tensor names to dtype/shape/byte-range, then the concatenated raw
// buffers. Used to persist shared-variable state between processes.

type headerEntry struct {
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Offsets [2]int `json:"data_offsets"`
}

func dtypeFromName(name string) (DataType, error) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Bool} {
		if dt.String() == name {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}

// Save writes named tensors to w. Names are serialized in sorted order so the
// output is deterministic.
func Save(w io.Writer, tensors map[string]*Tensor) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]headerEntry, len(tensors))
	offset := 0
	for _, name := range names {
		t := tensors[name]
		size := t.ByteSize()
		header[name] = headerEntry{
			DType:   t.DType().String(),
			Shape:   t.Shape(),
			Offsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(headerBytes); err != nil {
		return err
	}
	for _, name := range names {
		t := tensors[name]
		if _, err := w.Write(t.Data()[:t.ByteSize()]); err != nil {
			return err
		}
	}
	return nil
}

// Load reads named tensors written by Save.
func Load(r io.Reader) (map[string]*Tensor, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen > 100<<20 {
		return nil, fmt.Errorf("header length %d exceeds limit", headerLen)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header map[string]headerEntry
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	// Entries are laid out back to back; read in offset order.
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return header[names[i]].Offsets[0] < header[names[j]].Offsets[0]
	})

	result := make(map[string]*Tensor, len(header))
	pos := 0
	for _, name := range names {
		entry := header[name]
		dtype, err := dtypeFromName(entry.DType)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if entry.Offsets[0] != pos {
			return nil, fmt.Errorf("tensor %q: non-contiguous data offset %d (want %d)", name, entry.Offsets[0], pos)
		}
		t, err := New(Shape(entry.Shape), dtype, CPU)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		want := t.ByteSize()
		if got := entry.Offsets[1] - entry.Offsets[0]; got != want {
			return nil, fmt.Errorf("tensor %q: data size %d does not match shape %v (%d bytes)", name, got, entry.Shape, want)
		}
		if _, err := io.ReadFull(r, t.Data()[:want]); err != nil {
			return nil, fmt.Errorf("tensor %q: read data: %w", name, err)
		}
		pos += want
		result[name] = t
	}
	return result, nil
}

// SaveFile writes named tensors to a file.
func SaveFile(path string, tensors map[string]*Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Save(f, tensors); err != nil {
		return err
	}
	return f.Sync()
}

// LoadFile reads named tensors from a file.
func LoadFile(path string) (map[string]*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
