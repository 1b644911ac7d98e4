package models

import (
	"encoding/json"
	"strings"
)

// DataFile is one entry of a dataset version's file listing
type DataFile struct {
	ID                 int64
	Filename           string
	Label              string
	DirectoryLabel     string
	Filesize           int64
	Checksum           Checksum
	OriginalFileFormat string

	// Raw is the listing object exactly as the server returned it
	Raw json.RawMessage
}

// Checksum algorithm tag plus expected hex digest
type Checksum struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// listingEntry mirrors the JSON shape of a file in latestVersion.files
type listingEntry struct {
	Label          string `json:"label"`
	DirectoryLabel string `json:"directoryLabel"`
	DataFile       struct {
		ID                 int64    `json:"id"`
		Filename           string   `json:"filename"`
		Filesize           int64    `json:"filesize"`
		Checksum           Checksum `json:"checksum"`
		OriginalFileFormat string   `json:"originalFileFormat"`
	} `json:"dataFile"`
}

// UnmarshalJSON implements json.Unmarshaler interface
func (f *DataFile) UnmarshalJSON(b []byte) error {
	var e listingEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}

	*f = DataFile{
		ID:                 e.DataFile.ID,
		Filename:           e.DataFile.Filename,
		Label:              e.Label,
		DirectoryLabel:     strings.Trim(e.DirectoryLabel, "/"),
		Filesize:           e.DataFile.Filesize,
		Checksum:           e.DataFile.Checksum,
		OriginalFileFormat: e.DataFile.OriginalFileFormat,
		Raw:                append(json.RawMessage(nil), b...),
	}
	if f.Filename == "" {
		f.Filename = e.Label
	}
	return nil
}

// MarshalJSON returns the server's original object when available
func (f DataFile) MarshalJSON() ([]byte, error) {
	if len(f.Raw) > 0 {
		return f.Raw, nil
	}

	var e listingEntry
	e.Label = f.Label
	e.DirectoryLabel = f.DirectoryLabel
	e.DataFile.ID = f.ID
	e.DataFile.Filename = f.Filename
	e.DataFile.Filesize = f.Filesize
	e.DataFile.Checksum = f.Checksum
	e.DataFile.OriginalFileFormat = f.OriginalFileFormat
	return json.Marshal(e)
}

// IsIngested reports whether the repository converted the file into a
// derived format, so the byte-identical original must be requested
// explicitly.
func (f DataFile) IsIngested() bool {
	return f.OriginalFileFormat != ""
}
