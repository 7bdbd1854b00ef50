// Package msp provides a streaming reader for search results exported as
// MSP-style text, one identified spectrum per entry.
//
// An entry looks like:
//
//	Name: PEPRTIDE/2
//	Protein: sp|P12345|TEST_HUMAN
//	Title: run1.mgf Scan 1234; RT 12.3
//	Comment: Parent=1016.51 Start=10 EValue=0.001 ModString=PEPRTIDE//Citrullination@R13
//	Num peaks: 2
//	227.10	100
//	324.16	80
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Reader provides streaming access to MSP search result files
type Reader struct {
	scanner    *bufio.Scanner
	modDB      *core.ModDatabase
	lineNum    int
	currentPSM *core.PSM
	err        error
}

// NewReader creates a new MSP reader
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	return &Reader{
		scanner: bufio.NewScanner(r),
		modDB:   modDB,
	}
}

// Next advances to the next PSM. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.currentPSM = nil

	psm, err := r.readPSM()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	// Entries without a Parent comment get the singly protonated mass of
	// the modified sequence.
	if psm.ParentMass == 0 {
		psm.ParentMass = core.CalculatePeptideMass(psm.Sequence, 1, psm.Modifications)
	}

	r.currentPSM = psm
	return true
}

// PSM returns the current PSM
func (r *Reader) PSM() *core.PSM {
	return r.currentPSM
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadAll reads every entry of r into a search result for fileName.
func ReadAll(r io.Reader, fileName string, modDB *core.ModDatabase) (core.SearchResult, error) {
	res := core.SearchResult{FileName: fileName}
	reader := NewReader(r, modDB)
	for reader.Next() {
		res.PSMs = append(res.PSMs, *reader.PSM())
	}
	if err := reader.Err(); err != nil {
		return core.SearchResult{}, err
	}
	return res, nil
}

func (r *Reader) readPSM() (*core.PSM, error) {
	psm := &core.PSM{}
	var numPeaks int
	inPeaks := false
	started := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip empty lines between entries
		if line == "" && !started {
			continue
		}

		if !inPeaks {
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				return nil, fmt.Errorf("line %d: expected 'Key: value', got '%s'", r.lineNum, line)
			}
			started = true

			switch key {
			case "Name":
				if err := parseName(psm, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "Protein":
				psm.ProteinLabel = value
			case "Title":
				psm.Description = value
			case "Comment":
				if err := r.parseComment(psm, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "Num peaks":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return psm, nil
				}
			}
			continue
		}

		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		psm.Peaks = append(psm.Peaks, peak)
		if len(psm.Peaks) >= numPeaks {
			return psm, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if started {
		return nil, fmt.Errorf("line %d: truncated entry for %s", r.lineNum, psm.Sequence)
	}
	return nil, io.EOF
}

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func parseName(psm *core.PSM, name string) error {
	seq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	psm.Sequence = seq
	psm.Charge = charge
	return nil
}

// parseComment extracts metadata from the Comment field
// (format: key=value key=value...).
func (r *Reader) parseComment(psm *core.PSM, comment string) error {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		var err error
		switch key {
		case "Parent":
			psm.ParentMass, err = strconv.ParseFloat(value, 64)
		case "Start":
			psm.DomainStart, err = strconv.Atoi(value)
		case "EValue", "Expect":
			psm.EValue, err = strconv.ParseFloat(value, 64)
		case "ModString":
			err = r.parseModString(psm, value)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// parseModString parses the ModString field (format: SEQUENCE//Mod@R12;Mod@M15).
func (r *Reader) parseModString(psm *core.PSM, modString string) error {
	_, modPart, ok := strings.Cut(modString, "//")
	if !ok {
		modPart = modString
	}

	mods, err := r.modDB.ParseModString(modPart)
	if err != nil {
		return err
	}
	psm.Modifications = append(psm.Modifications, mods...)
	return nil
}

// parsePeak parses a single peak line (format: "mz\tintensity")
func parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	return core.Peak{MZ: mz, Intensity: intensity}, nil
}
