// Package sqlite provides SQLite database writing for pairing and
// quantification results
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
	"github.com/ChrisMcGann/CitFinder/pkg/quant"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	schemaVersion    = 1
)

// Writer handles writing a run to an SQLite database file
type Writer struct {
	db           *sql.DB
	outputPath   string
	spectrumStmt *sql.Stmt
	pairingStmt  *sql.Stmt
	quantStmt    *sql.Stmt
	spectrumID   int64
	spectrumIDs  map[*core.Spectrum]int64
	closed       bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:          db,
		outputPath:  outputPath,
		spectrumID:  1,
		spectrumIDs: make(map[*core.Spectrum]int64),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		FileName TEXT,
		ScanNumber INTEGER,
		Kind TEXT,
		Sequence TEXT,
		Protein TEXT,
		Charge INTEGER,
		RetentionTime DOUBLE,
		PrecursorMz DOUBLE,
		EValue DOUBLE,
		CitIndex INTEGER,
		CitScore DOUBLE,
		MatchScore DOUBLE,
		IsoCyanicMzMS1 DOUBLE,
		Orphan BOOL,
		blobMass BLOB,
		blobIntensity BLOB,
		blobIsoCyanicLoss BLOB
	);

	CREATE TABLE IF NOT EXISTS PairingTable (
		PairingId INTEGER PRIMARY KEY AUTOINCREMENT,
		Provenance TEXT,
		PrimarySpectrumId INTEGER REFERENCES SpectrumTable(SpectrumId),
		ComplementSpectrumId INTEGER REFERENCES SpectrumTable(SpectrumId),
		Rank INTEGER,
		Chosen BOOL
	);

	CREATE TABLE IF NOT EXISTS QuantificationTable (
		QuantificationId INTEGER PRIMARY KEY AUTOINCREMENT,
		Protein TEXT,
		Sequence TEXT,
		CitXIC DOUBLE,
		ArgXIC DOUBLE,
		CitPercent DOUBLE,
		Provenance TEXT,
		CitFileName TEXT,
		ArgFileName TEXT,
		CitRetentionTime DOUBLE,
		ArgRetentionTime DOUBLE,
		CitCharge INTEGER,
		ArgCharge INTEGER,
		CitSpectrumId INTEGER,
		ArgSpectrumId INTEGER,
		Score DOUBLE,
		MatchScore DOUBLE
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.spectrumStmt, err = w.db.Prepare(`
		INSERT INTO SpectrumTable (
			SpectrumId, FileName, ScanNumber, Kind, Sequence, Protein,
			Charge, RetentionTime, PrecursorMz, EValue, CitIndex, CitScore,
			MatchScore, IsoCyanicMzMS1, Orphan, blobMass, blobIntensity,
			blobIsoCyanicLoss
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	w.pairingStmt, err = w.db.Prepare(`
		INSERT INTO PairingTable (
			Provenance, PrimarySpectrumId, ComplementSpectrumId, Rank, Chosen
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pairing statement: %w", err)
	}

	w.quantStmt, err = w.db.Prepare(`
		INSERT INTO QuantificationTable (
			Protein, Sequence, CitXIC, ArgXIC, CitPercent, Provenance,
			CitFileName, ArgFileName, CitRetentionTime, ArgRetentionTime,
			CitCharge, ArgCharge, CitSpectrumId, ArgSpectrumId, Score, MatchScore
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare quantification statement: %w", err)
	}

	return nil
}

// WriteState writes the three ranked tables of a run. Every complement is
// written with its rank; chosen entries are flagged.
func (w *Writer) WriteState(state *pairing.State) error {
	for _, pr := range state.Cit {
		if err := w.writePairing(state, pairing.CitPaired, pr); err != nil {
			return err
		}
	}
	for _, pr := range state.Arg {
		if err := w.writePairing(state, pairing.ArgPaired, pr); err != nil {
			return err
		}
	}
	for _, s := range state.Lone {
		id, err := w.writeSpectrum(s)
		if err != nil {
			return err
		}
		chosen := state.IsChosen(pairing.Lone, s.Key())
		if _, err := w.pairingStmt.Exec(pairing.Lone.String(), id, nil, nil, chosen); err != nil {
			return fmt.Errorf("failed to insert pairing for %s: %w", s.Key(), err)
		}
	}
	return nil
}

func (w *Writer) writePairing(state *pairing.State, p pairing.Provenance, pr pairing.Pairing) error {
	primaryID, err := w.writeSpectrum(pr.Primary)
	if err != nil {
		return err
	}
	chosenRank, chosen := state.ChosenComplementIndex(p, pr.Primary.Key())

	for rank, c := range pr.Complements {
		complementID, err := w.writeSpectrum(c)
		if err != nil {
			return err
		}
		_, err = w.pairingStmt.Exec(
			p.String(),                   // Provenance
			primaryID,                    // PrimarySpectrumId
			complementID,                 // ComplementSpectrumId
			rank,                         // Rank
			chosen && rank == chosenRank, // Chosen
		)
		if err != nil {
			return fmt.Errorf("failed to insert pairing for %s: %w", pr.Primary.Key(), err)
		}
	}
	return nil
}

// writeSpectrum inserts s once and returns its row id.
func (w *Writer) writeSpectrum(s *core.Spectrum) (int64, error) {
	if id, ok := w.spectrumIDs[s]; ok {
		return id, nil
	}

	var protein string
	var evalue interface{}
	if s.Ident != nil {
		protein = s.Ident.ProteinLabel
		evalue = s.Ident.EValue
	}

	var isoMS1 interface{}
	if s.IsoCyanicMZMS1 > 0 {
		isoMS1 = s.IsoCyanicMZMS1
	}

	id := w.spectrumID
	_, err := w.spectrumStmt.Exec(
		id,                                 // SpectrumId
		s.FileName,                         // FileName
		s.ID,                               // ScanNumber
		s.Kind().String(),                  // Kind
		s.Sequence(),                       // Sequence
		protein,                            // Protein
		s.Charge,                           // Charge
		s.RetentionTime,                    // RetentionTime
		s.PrecursorMZ,                      // PrecursorMz
		evalue,                             // EValue
		s.CitIndex,                         // CitIndex
		s.CitScore,                         // CitScore
		s.MatchScore,                       // MatchScore
		isoMS1,                             // IsoCyanicMzMS1
		s.Orphan,                           // Orphan
		encodePeaksFloat64(s.Peaks, true),  // blobMass
		encodePeaksFloat64(s.Peaks, false), // blobIntensity
		encodeFloat64s(s.IsoCyanicLossMZ),  // blobIsoCyanicLoss
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert spectrum %s: %w", s.Key(), err)
	}

	w.spectrumIDs[s] = id
	w.spectrumID++
	return id, nil
}

// WriteResults writes the quantification table. Undefined percentages are
// stored as NULL.
func (w *Writer) WriteResults(results []quant.Result) error {
	for i, r := range results {
		var percent interface{}
		if r.PercentDefined {
			percent = r.CitPercent
		}

		_, err := w.quantStmt.Exec(
			r.Protein,             // Protein
			r.Sequence,            // Sequence
			r.CitXIC,              // CitXIC
			r.ArgXIC,              // ArgXIC
			percent,               // CitPercent
			r.Provenance.String(), // Provenance
			r.CitFileName,         // CitFileName
			r.ArgFileName,         // ArgFileName
			r.CitRetentionTime,    // CitRetentionTime
			r.ArgRetentionTime,    // ArgRetentionTime
			r.CitCharge,           // CitCharge
			r.ArgCharge,           // ArgCharge
			r.CitSpectrumID,       // CitSpectrumId
			r.ArgSpectrumID,       // ArgSpectrumId
			r.Score,               // Score
			r.MatchScore,          // MatchScore
		)
		if err != nil {
			return fmt.Errorf("failed to insert quantification result %d: %w", i, err)
		}
	}
	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

func encodeFloat64s(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Description)
		VALUES (?, ?, ?)
	`, schemaVersion, time.Now().Format(headerDateFormat), "CitFinder results")
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.spectrumStmt, w.pairingStmt, w.quantStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
