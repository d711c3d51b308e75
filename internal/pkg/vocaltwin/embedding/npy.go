package embedding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Minimal NPY v1.0 codec for little-endian float32 vectors. The embedding
// file holds a single 1-D array, so nothing beyond that is supported.

func writeNpyFloat32(w io.Writer, data []float32) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d,), }", len(data))
	// Total header (magic + version + length + dict + newline) padded to 64.
	padded := len(header) + 1
	if rem := (10 + padded) % 64; rem != 0 {
		padded += 64 - rem
	}
	header += strings.Repeat(" ", padded-len(header)-1) + "\n"

	if _, err := w.Write([]byte("\x93NUMPY\x01\x00")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

func readNpyFloat32(r io.Reader) ([]float32, error) {
	magic := make([]byte, 6)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != "\x93NUMPY" {
		return nil, fmt.Errorf("invalid NPY magic number")
	}

	version := make([]byte, 2)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}

	var headerLen uint32
	if version[0] == 1 {
		var hl uint16
		if err := binary.Read(r, binary.LittleEndian, &hl); err != nil {
			return nil, fmt.Errorf("failed to read header length: %w", err)
		}
		headerLen = uint32(hl)
	} else {
		if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
			return nil, fmt.Errorf("failed to read header length: %w", err)
		}
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerStr := string(header)
	if !strings.Contains(headerStr, "'descr': '<f4'") {
		return nil, fmt.Errorf("unsupported NPY dtype (want <f4)")
	}

	count, err := parseVectorShape(headerStr)
	if err != nil {
		return nil, err
	}

	// Never trust the declared shape: the allocation is sized by what the
	// file actually holds.
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read array data: %w", err)
	}
	if len(raw)/4 < count {
		return nil, fmt.Errorf("truncated NPY data: shape declares %d values, file holds %d", count, len(raw)/4)
	}

	data := make([]float32, count)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("failed to read array data: %w", err)
	}
	return data, nil
}

func parseVectorShape(header string) (int, error) {
	start := strings.Index(header, "'shape':")
	if start < 0 {
		return 0, fmt.Errorf("NPY header missing shape")
	}
	open := strings.Index(header[start:], "(")
	end := strings.Index(header[start:], ")")
	if open < 0 || end < 0 || end < open {
		return 0, fmt.Errorf("malformed NPY shape")
	}

	dims := strings.Split(header[start+open+1:start+end], ",")
	count := 1
	for _, d := range dims {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		n, err := strconv.Atoi(d)
		if err != nil {
			return 0, fmt.Errorf("malformed NPY shape dimension %q", d)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative NPY shape dimension %d", n)
		}
		if n > 0 && count > math.MaxInt32/n {
			return 0, fmt.Errorf("NPY shape too large")
		}
		count *= n
	}
	return count, nil
}
