// Package core provides modification parsing and management
package core

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// citrullinationMassTolerance absorbs the rounding of reported mass changes
const citrullinationMassTolerance = 0.001

// Modification represents a residue modification reported by the search engine.
type Modification struct {
	Residue  string  // One-letter amino acid code
	Position int     // Protein coordinate, same convention as Identification.DomainStart
	Mass     float64 // Mass change
	Name     string  // Optional modification name (e.g. "Citrullination")
}

// IsCitrullination reports whether the modification is the +0.984 Da
// arginine conversion.
func (m Modification) IsCitrullination() bool {
	return m.Residue == CitrullinationResidue &&
		math.Abs(m.Mass-CitrullinationDelta) < citrullinationMassTolerance
}

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods map[string]float64 // name -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift)
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		massStr := strings.TrimSpace(parts[1])
		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}
		db.mods[strings.TrimSpace(parts[0])] = mass
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}
	return nil
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[name]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[name] = mass
}

// ParseModString parses a modification string like "0.984@R105;15.994915@M110"
// or "Citrullination@R105;Oxidation@M110". The residue letter is required and
// the position is a protein coordinate.
func (db *ModDatabase) ParseModString(modStr string) ([]Modification, error) {
	if strings.TrimSpace(modStr) == "" {
		return nil, nil
	}

	var mods []Modification
	for _, part := range strings.Split(modStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		nameOrMass, site, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'name@R12' or 'mass@R12'", part)
		}
		nameOrMass = strings.TrimSpace(nameOrMass)
		site = strings.TrimSpace(site)

		// Try to parse as a number first (direct mass)
		mass, err := strconv.ParseFloat(nameOrMass, 64)
		name := ""
		if err != nil {
			var found bool
			mass, found = db.GetMass(nameOrMass)
			if !found {
				return nil, fmt.Errorf("unknown modification '%s'", nameOrMass)
			}
			name = nameOrMass
		}

		residue, position, err := parseSite(site)
		if err != nil {
			return nil, fmt.Errorf("invalid site '%s': %w", site, err)
		}

		mods = append(mods, Modification{
			Residue:  residue,
			Position: position,
			Mass:     mass,
			Name:     name,
		})
	}
	return mods, nil
}

// parseSite splits "R105" into residue and position.
func parseSite(site string) (string, int, error) {
	if len(site) < 2 {
		return "", 0, fmt.Errorf("expected residue letter followed by position")
	}
	residue := site[:1]
	if _, ok := AminoAcidMasses[rune(residue[0])]; !ok {
		return "", 0, fmt.Errorf("unknown residue %q", residue)
	}
	pos, err := strconv.Atoi(site[1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid position number: %w", err)
	}
	return residue, pos, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	db.Add("Citrullination", CitrullinationDelta)
	db.Add("Deamidated", 0.984016)
	db.Add("Carbamidomethyl", 57.021464)
	db.Add("Oxidation", 15.994915)
	db.Add("Acetyl", 42.010565)
	db.Add("Phospho", 79.966331)
	db.Add("Methyl", 14.01565)
	db.Add("Dimethyl", 28.0313)
	db.Add("Carbamyl", 43.005814)
	db.Add("Gln->pyro-Glu", -17.026549)
	db.Add("Glu->pyro-Glu", -18.010565)
	db.Add("Amidated", -0.984016)

	return db
}
