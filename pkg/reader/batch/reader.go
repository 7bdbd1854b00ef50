// Package batch reads the JSON batch document describing one run: the
// search results per source file and the raw MS1/MS2 scans of each file.
//
// Search results are given inline or as a reference to an MSP export:
//
//	{
//	  "searches": [
//	    {"file": "run1.mgf", "msp": "run1.msp"},
//	    {"file": "run2.mgf", "psms": [{"sequence": "PEPRTIDE", ...}]}
//	  ],
//	  "raw": [
//	    {"file": "run1.mgf", "ms1": [...], "ms2": [...]}
//	  ]
//	}
package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/reader/msp"
)

type document struct {
	Searches []searchDoc `json:"searches"`
	Raw      []rawDoc    `json:"raw"`
}

type searchDoc struct {
	File string   `json:"file"`
	MSP  string   `json:"msp,omitempty"` // relative to the batch document
	PSMs []psmDoc `json:"psms,omitempty"`
}

type psmDoc struct {
	Sequence      string       `json:"sequence"`
	Protein       string       `json:"protein"`
	DomainStart   int          `json:"domain_start"`
	Modifications []modDoc     `json:"modifications,omitempty"`
	ModString     string       `json:"mod_string,omitempty"`
	ParentMass    float64      `json:"parent_mass"`
	EValue        float64      `json:"evalue"`
	Title         string       `json:"title"`
	Charge        int          `json:"charge"`
	Peaks         [][2]float64 `json:"peaks"`
}

type modDoc struct {
	Name     string  `json:"name,omitempty"`
	Residue  string  `json:"residue"`
	Position int     `json:"position"`
	Mass     float64 `json:"mass,omitempty"` // looked up by name when zero
}

type rawDoc struct {
	File string    `json:"file"`
	MS1  []scanDoc `json:"ms1"`
	MS2  []scanDoc `json:"ms2"`
}

type scanDoc struct {
	Scan        int          `json:"scan"`
	ParentScan  int          `json:"parent_scan,omitempty"`
	RT          float64      `json:"rt"` // seconds
	PrecursorMZ float64      `json:"precursor_mz,omitempty"`
	Charge      int          `json:"charge,omitempty"`
	Peaks       [][2]float64 `json:"peaks"`
}

// Reader converts batch documents to a core.Corpus.
type Reader struct {
	modDB *core.ModDatabase
}

// NewReader creates a reader resolving modification names through modDB.
func NewReader(modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}
	return &Reader{modDB: modDB}
}

// ReadFile reads the batch document at path. MSP references are resolved
// relative to its directory.
func (r *Reader) ReadFile(path string) (core.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Corpus{}, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	return r.Read(f, filepath.Dir(path))
}

// Read decodes a batch document. A malformed document is a fatal error.
// Source files whose records cannot be converted are left out of the
// corpus and reported as *core.FileError values in the returned error.
func (r *Reader) Read(rd io.Reader, baseDir string) (core.Corpus, error) {
	var doc document
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return core.Corpus{}, fmt.Errorf("failed to decode batch document: %w", err)
	}

	var corpus core.Corpus
	bad := make(map[string]error)

	for _, sd := range doc.Searches {
		sr, err := r.searchResult(sd, baseDir)
		if err != nil {
			bad[sd.File] = err
			continue
		}
		corpus.Searches = append(corpus.Searches, sr)
	}
	for _, rf := range doc.Raw {
		corpus.Raw = append(corpus.Raw, rawFile(rf))
	}

	if len(bad) == 0 {
		return corpus, nil
	}
	return corpus.Exclude(bad)
}

func (r *Reader) searchResult(sd searchDoc, baseDir string) (core.SearchResult, error) {
	if sd.File == "" {
		return core.SearchResult{}, fmt.Errorf("search result without file name")
	}
	if sd.MSP != "" && len(sd.PSMs) > 0 {
		return core.SearchResult{}, fmt.Errorf("both msp and inline psms given")
	}

	if sd.MSP != "" {
		path := sd.MSP
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return core.SearchResult{}, fmt.Errorf("failed to open msp file: %w", err)
		}
		defer f.Close()

		sr, err := msp.ReadAll(f, sd.File, r.modDB)
		if err != nil {
			return core.SearchResult{}, fmt.Errorf("%s: %w", sd.MSP, err)
		}
		return sr, nil
	}

	sr := core.SearchResult{FileName: sd.File, PSMs: make([]core.PSM, 0, len(sd.PSMs))}
	for i, pd := range sd.PSMs {
		p, err := r.psm(pd)
		if err != nil {
			return core.SearchResult{}, fmt.Errorf("psm %d: %w", i, err)
		}
		sr.PSMs = append(sr.PSMs, p)
	}
	return sr, nil
}

func (r *Reader) psm(pd psmDoc) (core.PSM, error) {
	mods := make([]core.Modification, 0, len(pd.Modifications))
	for _, md := range pd.Modifications {
		mass := md.Mass
		if mass == 0 {
			var ok bool
			if mass, ok = r.modDB.GetMass(md.Name); !ok {
				return core.PSM{}, fmt.Errorf("unknown modification '%s'", md.Name)
			}
		}
		mods = append(mods, core.Modification{
			Residue:  md.Residue,
			Position: md.Position,
			Mass:     mass,
			Name:     md.Name,
		})
	}

	parsed, err := r.modDB.ParseModString(pd.ModString)
	if err != nil {
		return core.PSM{}, err
	}
	mods = append(mods, parsed...)

	return core.PSM{
		Identification: core.Identification{
			Sequence:      pd.Sequence,
			ProteinLabel:  pd.Protein,
			DomainStart:   pd.DomainStart,
			Modifications: mods,
			ParentMass:    pd.ParentMass,
			EValue:        pd.EValue,
			Description:   pd.Title,
		},
		Charge: pd.Charge,
		Peaks:  peaks(pd.Peaks),
	}, nil
}

func rawFile(rd rawDoc) core.RawFile {
	return core.RawFile{
		FileName: rd.File,
		MS1:      scans(rd.MS1, 1),
		MS2:      scans(rd.MS2, 2),
	}
}

func scans(docs []scanDoc, level int) []core.RawScan {
	out := make([]core.RawScan, 0, len(docs))
	for _, sd := range docs {
		out = append(out, core.RawScan{
			ScanNumber:       sd.Scan,
			ParentScanNumber: sd.ParentScan,
			MSLevel:          level,
			RetentionTime:    sd.RT,
			PrecursorMZ:      sd.PrecursorMZ,
			Charge:           sd.Charge,
			Peaks:            peaks(sd.Peaks),
		})
	}
	return out
}

func peaks(pairs [][2]float64) []core.Peak {
	out := make([]core.Peak, len(pairs))
	for i, p := range pairs {
		out[i] = core.Peak{MZ: p[0], Intensity: p[1]}
	}
	return out
}
