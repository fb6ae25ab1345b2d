package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var errMissingEpisodio = errors.New("record is missing episodio")

// EpisodeRecord is one entry of the published catalog.
//
// Keys other than the four known ones are kept as raw JSON so a catalog
// written by another tool survives a rewrite unchanged.
type EpisodeRecord struct {
	Episodio    int
	Titulo      string
	Descripcion string
	URL         string

	extra map[string]json.RawMessage
}

// Catalog is the ordered episode list; insertion order is episode order.
type Catalog []EpisodeRecord

var recordKeys = map[string]bool{"episodio": true, "titulo": true, "descripcion": true, "url": true}

// UnmarshalJSON decodes a record, requiring an integer episodio.
func (r *EpisodeRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("record is null")
	}

	raw, ok := fields["episodio"]
	if !ok {
		return errMissingEpisodio
	}
	var out EpisodeRecord
	if err := json.Unmarshal(raw, &out.Episodio); err != nil {
		return fmt.Errorf("decode episodio: %w", err)
	}
	if err := decodeOptionalString(fields, "titulo", &out.Titulo); err != nil {
		return err
	}
	if err := decodeOptionalString(fields, "descripcion", &out.Descripcion); err != nil {
		return err
	}
	if err := decodeOptionalString(fields, "url", &out.URL); err != nil {
		return err
	}

	for key, value := range fields {
		if recordKeys[key] {
			continue
		}
		if out.extra == nil {
			out.extra = make(map[string]json.RawMessage)
		}
		out.extra[key] = value
	}

	*r = out
	return nil
}

// MarshalJSON writes the known keys first, then any preserved keys in sorted order.
func (r EpisodeRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	known := []struct {
		key   string
		value any
	}{
		{"episodio", r.Episodio},
		{"titulo", r.Titulo},
		{"descripcion", r.Descripcion},
		{"url", r.URL},
	}
	for i, kv := range known {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeField(&buf, kv.key, kv.value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(r.extra))
	for key := range r.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteByte(',')
		if err := writeField(&buf, key, r.extra[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Extra returns a preserved unknown key, if present.
func (r EpisodeRecord) Extra(key string) (json.RawMessage, bool) {
	v, ok := r.extra[key]
	return v, ok
}

func writeField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func decodeOptionalString(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// MaxEpisode returns the highest episode number in the catalog.
// ok is false for an empty catalog.
func (c Catalog) MaxEpisode() (int, bool) {
	if len(c) == 0 {
		return 0, false
	}
	highest := c[0].Episodio
	for _, r := range c[1:] {
		if r.Episodio > highest {
			highest = r.Episodio
		}
	}
	return highest, true
}
