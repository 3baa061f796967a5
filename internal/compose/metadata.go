package compose

import "strings"

// Metadata is the subset of track tags the composer cares about, extracted
// from the structured metadata property. Escaped variants are prepared at
// extraction time so composition stays pure.
type Metadata struct {
	Album       string
	AlbumArtist string
	// Artist is kept raw for the summary (which never supports markup) and
	// escaped for body use.
	Artist    string
	ArtistEsc string
	Date      string
	// DateYear is Date reduced to YYYY when it looks like a full date.
	DateYear         string
	Disc             string
	Discc            string
	DiscNumber       string
	DiscTotal        string
	OriginalDate     string
	OriginalDateYear string
	OriginalYear     string
	// Title is raw; it only ever appears in the summary.
	Title      string
	TotalDiscs string
	Year       string
}

// ExtractMetadata pulls known tags out of a decoded metadata node. Tag name
// matching is case-insensitive and the first occurrence of a tag wins.
// escape is the active markup escaper (identity when markup is off).
func ExtractMetadata(node any, escape func(string) string) (*Metadata, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}

	out := &Metadata{}
	for key, raw := range m {
		val, ok := raw.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "album":
			setFirst(&out.Album, escape(val))
		case "album_artist":
			setFirst(&out.AlbumArtist, escape(val))
		case "artist":
			setFirst(&out.Artist, val)
			setFirst(&out.ArtistEsc, escape(val))
		case "date":
			setFirst(&out.Date, escape(val))
			if out.DateYear == "" {
				if y, ok := yearOf(val); ok {
					out.DateYear = y
				} else {
					out.DateYear = escape(val)
				}
			}
		case "disc":
			setFirst(&out.Disc, escape(val))
		case "discc":
			setFirst(&out.Discc, escape(val))
		case "discnumber":
			setFirst(&out.DiscNumber, escape(val))
		case "disctotal":
			setFirst(&out.DiscTotal, escape(val))
		case "originaldate":
			setFirst(&out.OriginalDate, escape(val))
			if out.OriginalDateYear == "" {
				if y, ok := yearOf(val); ok {
					out.OriginalDateYear = y
				} else {
					out.OriginalDateYear = escape(val)
				}
			}
		case "originalyear":
			setFirst(&out.OriginalYear, escape(val))
		case "title":
			setFirst(&out.Title, val)
		case "totaldiscs":
			setFirst(&out.TotalDiscs, escape(val))
		case "year":
			setFirst(&out.Year, escape(val))
		}
	}
	return out, true
}

func setFirst(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
