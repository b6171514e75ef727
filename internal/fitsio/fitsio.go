// Package fitsio loads and stores images in the FITS format used by the
// capture side: 2880-byte blocks of 80-byte header records followed by
// big-endian pixel data. Only single 2-D image HDUs are handled.
package fitsio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"transient-finder/internal/frame"
)

const (
	blockSize  = 2880
	recordSize = 80
)

// Read loads a FITS image from disk. NaN and infinite pixels are replaced
// during ingestion so downstream stages see finite data only.
func Read(path string) (*frame.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	img, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ReadBytes decodes a FITS image held in memory.
func ReadBytes(data []byte) (*frame.Image, error) {
	return ReadFrom(bytes.NewReader(data))
}

// ReadFrom decodes a FITS image from a stream.
func ReadFrom(r io.Reader) (*frame.Image, error) {
	var bitpix, naxis, width, height int
	naxis3 := 1
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	headers := make(map[string]string)

	recordBuf := make([]byte, recordSize)

	for !headerDone {
		for i := 0; i < blockSize/recordSize; i++ {
			if _, err := io.ReadFull(r, recordBuf); err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				remaining := blockSize/recordSize - 1 - i
				if remaining > 0 {
					skipBuf := make([]byte, remaining*recordSize)
					io.ReadFull(r, skipBuf)
				}
				break
			}

			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				parsedValue := parseValue(rawValue)

				if keyword != "" && parsedValue != "" {
					headers[strings.ToUpper(keyword)] = parsedValue
				}

				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(rawValue)
				case "NAXIS":
					naxis, _ = strconv.Atoi(rawValue)
				case "NAXIS1":
					width, _ = strconv.Atoi(rawValue)
				case "NAXIS2":
					height, _ = strconv.Atoi(rawValue)
				case "NAXIS3":
					naxis3, _ = strconv.Atoi(rawValue)
				case "BZERO":
					bzero, _ = strconv.ParseFloat(rawValue, 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(rawValue, 64)
				}
			}
		}
	}

	// Accept plain 2-D images, plus degenerate cubes with a single plane.
	if naxis == 3 && naxis3 == 1 {
		naxis = 2
	}
	if naxis != 2 {
		return nil, frame.Inputf("fits read", "NAXIS=%d is not a 2-D image", naxis)
	}
	if width <= 0 || height <= 0 {
		return nil, frame.Inputf("fits read", "axes %dx%d", width, height)
	}

	numPixels := width * height
	pix := make([]float64, numPixels)

	switch bitpix {
	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pix[i] = float64(rawBytes[i])*bscale + bzero
		}

	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signedVal := int16(binary.BigEndian.Uint16(rawBytes[i*2:]))
			pix[i] = float64(signedVal)*bscale + bzero
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intVal := int32(binary.BigEndian.Uint32(rawBytes[i*4:]))
			pix[i] = float64(intVal)*bscale + bzero
		}

	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			floatVal := math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:]))
			pix[i] = float64(floatVal)*bscale + bzero
		}

	case -64:
		rawBytes := make([]byte, numPixels*8)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -64 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			floatVal := math.Float64frombits(binary.BigEndian.Uint64(rawBytes[i*8:]))
			pix[i] = floatVal*bscale + bzero
		}

	default:
		return nil, frame.Inputf("fits read", "unsupported BITPIX %d", bitpix)
	}

	img, err := frame.FromSlice(pix, width, height)
	if err != nil {
		return nil, err
	}
	img.Header = headers
	img.Sanitize()
	return img, nil
}

// parseValue strips FITS value syntax: quoted strings lose their quotes and
// trailing padding, logical T/F become True/False, numbers pass through.
func parseValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}

// HeaderDouble looks up a numeric header card.
func HeaderDouble(header map[string]string, key string) (float64, bool) {
	v, ok := header[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// HeaderString looks up a header card, empty when absent.
func HeaderString(header map[string]string, key string) string {
	return header[strings.ToUpper(key)]
}

// ExposureTime returns the exposure from EXPTIME, falling back to EXPOSURE.
func ExposureTime(header map[string]string) (float64, bool) {
	if v, ok := HeaderDouble(header, "EXPTIME"); ok {
		return v, true
	}
	return HeaderDouble(header, "EXPOSURE")
}
