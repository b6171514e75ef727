package fitsio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"transient-finder/internal/frame"
)

// structural cards are owned by the writer; carried-over header maps must not
// override them.
var structuralKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true,
	"NAXIS1": true, "NAXIS2": true, "NAXIS3": true,
	"BZERO": true, "BSCALE": true, "END": true, "EXTEND": true,
}

// Write stores an image as a BITPIX -64 FITS file, preserving the header
// cards. Read(Write(img)) round-trips shape and pixel values exactly.
func Write(path string, img *frame.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	defer f.Close()
	if err := WriteTo(f, img); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// WriteTo encodes an image as a single-HDU FITS stream.
func WriteTo(w io.Writer, img *frame.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	written := 0
	card := func(line string) {
		if len(line) > recordSize {
			line = line[:recordSize]
		}
		bw.WriteString(line)
		bw.WriteString(strings.Repeat(" ", recordSize-len(line)))
		written += recordSize
	}

	card("SIMPLE  =                    T")
	card("BITPIX  =                  -64")
	card("NAXIS   =                    2")
	card(fmt.Sprintf("NAXIS1  = %20d", img.Width))
	card(fmt.Sprintf("NAXIS2  = %20d", img.Height))

	// Deterministic card order for the stored copies of the source header.
	keys := make([]string, 0, len(img.Header))
	for k := range img.Header {
		if !structuralKeys[strings.ToUpper(k)] && len(k) <= 8 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		card(formatCard(k, img.Header[k]))
	}

	card("END")
	if pad := written % blockSize; pad != 0 {
		bw.WriteString(strings.Repeat(" ", blockSize-pad))
	}

	buf := make([]byte, 8)
	for _, v := range img.Pix {
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("writing pixel data: %w", err)
		}
	}
	if pad := (len(img.Pix) * 8) % blockSize; pad != 0 {
		if _, err := bw.Write(make([]byte, blockSize-pad)); err != nil {
			return fmt.Errorf("padding pixel data: %w", err)
		}
	}
	return bw.Flush()
}

// formatCard renders one 80-column header record, inverting parseValue.
func formatCard(key, value string) string {
	upper := strings.ToUpper(key)
	switch value {
	case "True":
		return fmt.Sprintf("%-8s=                    T", upper)
	case "False":
		return fmt.Sprintf("%-8s=                    F", upper)
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return fmt.Sprintf("%-8s= %20s", upper, value)
	}
	quoted := value
	if len(quoted) > 67 {
		quoted = quoted[:67]
	}
	return fmt.Sprintf("%-8s= '%s'", upper, quoted)
}
