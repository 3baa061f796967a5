// Package compose turns the observed player state into notification text.
// Both composers are pure: given the same snapshot they produce the same
// strings, with no side effects.
package compose

import (
	"fmt"
	"math"
	"strings"

	"mpvnotify/internal/opts"
	"mpvnotify/internal/props"
)

// Snapshot is everything text composition reads. The engine assembles one
// per rewrite from state it exclusively owns.
type Snapshot struct {
	Table *props.Table
	Opts  *opts.Set

	Meta      *Metadata
	MetaAvail bool

	// PercentRounded is the engine's cached rounded percent-pos.
	PercentRounded int64

	// Markup reports whether the server supports body markup.
	Markup bool

	// Perf timings shown when the perfdata option is on.
	ThumbnailElapsedUS int64
	ShowElapsedUS      int64
}

// Summary composes the notification summary line. The summary never
// supports markup, so raw tag values are used.
func Summary(s *Snapshot) string {
	if s.Meta != nil && s.Meta.Artist != "" && s.Meta.Title != "" {
		return s.Meta.Artist + " - " + s.Meta.Title
	}
	if s.Table.Truthy(props.MediaTitle) {
		return s.Table.Str(props.MediaTitle)
	}
	return "No file"
}

func hhmmss(totalSec int64) string {
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	sec := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// isNormalFloat rejects zero, NaN and infinities, like C's isnormal().
func isNormalFloat(f float64) bool {
	return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Body composes the multi-line notification body:
//
//	L1: playback indicators and progress
//	L2: chapter position, if there is more than one chapter
//	L3: edition position, if there is more than one edition
//	L4: release information, if available
//	L5: disc position, for multi-disc releases
//	L6: an additional message (EOF / end of playlist)
//	L7: perf diagnostics
//	L8: current subtitle/lyric text, if any
func Body(s *Snapshot) string {
	t := s.Table
	o := s.Opts
	var b strings.Builder

	// L1
	if t.Present(props.PlaylistPos) && t.Int(props.PlaylistCount) > 1 {
		fmt.Fprintf(&b, "(%02d/%02d) ", t.Int(props.PlaylistPos)+1, t.Int(props.PlaylistCount))
	}

	switch {
	case t.Truthy(props.PausedForCache) || t.Truthy(props.Seeking):
		b.WriteString("⏲")
	case t.Truthy(props.Pause):
		b.WriteString("⏸")
	case t.Truthy(props.PlayDirection) && t.Str(props.PlayDirection) == "backward":
		b.WriteString("◀")
	default:
		b.WriteString("▶")
	}

	if !t.Truthy(props.IdleActive) && !t.Truthy(props.ImageDetected) && t.Present(props.TimePos) {
		pos := hhmmss(t.Int(props.TimePos))
		if t.Present(props.Duration) {
			fmt.Fprintf(&b, " %s / %s (%d%%)", pos, hhmmss(t.Int(props.Duration)), s.PercentRounded)
		} else {
			fmt.Fprintf(&b, " %s (%d%%)", pos, s.PercentRounded)
		}

		if t.Present(props.LoopFile) && t.Str(props.LoopFile) != "no" {
			b.WriteString(" 🔁")
		}
	}

	if t.Present(props.Speed) && t.Float(props.Speed) != 1 {
		fmt.Fprintf(&b, " (%.2fx)", t.Float(props.Speed))
	}

	if t.Truthy(props.Mute) {
		b.WriteString(" 🔇")
	}

	if t.Present(props.Volume) && t.Int(props.Volume) != 100 {
		fmt.Fprintf(&b, " (🔊 %d%%)", t.Int(props.Volume))
	}

	if !t.Present(props.ImageDisplayDuration) || !isNormalFloat(t.Float(props.ImageDisplayDuration)) {
		if !t.Truthy(props.ImageDetected) && t.Truthy(props.KeepOpen) &&
			t.Str(props.KeepOpen) != "always" {
			b.WriteString(" (auto)")
		}
	} else if t.Truthy(props.ImageDetected) {
		fmt.Fprintf(&b, " (ss: %.0fs)", t.Float(props.ImageDisplayDuration))
	}

	// L2
	if t.Present(props.Chapter) && t.Int(props.Chapters) > 1 {
		fmt.Fprintf(&b, "\nChapter: %d / %d", t.Int(props.Chapter)+1, t.Int(props.Chapters))
	}

	// L3
	if t.Present(props.Edition) && t.Int(props.Editions) > 1 {
		fmt.Fprintf(&b, "\nEdition: %d / %d", t.Int(props.Edition)+1, t.Int(props.Editions))
	}

	// L4
	meta := s.Meta
	if meta == nil {
		meta = &Metadata{}
	}
	albumArtist := firstNonEmpty(meta.AlbumArtist, meta.ArtistEsc)
	if meta.Album != "" {
		date := firstNonEmpty(meta.OriginalYear, meta.OriginalDateYear, meta.Year, meta.DateYear)
		b.WriteString("\n")
		if albumArtist != "" {
			b.WriteString(albumArtist)
			b.WriteString(" - ")
		}
		b.WriteString(meta.Album)
		if date != "" {
			fmt.Fprintf(&b, " (%s)", date)
		}
	} else {
		date := firstNonEmpty(meta.OriginalYear, meta.OriginalDate, meta.Year, meta.Date)
		if date != "" {
			fmt.Fprintf(&b, "\nDate: %s", date)
		}
	}

	// L5
	totalDiscs := firstNonEmpty(meta.TotalDiscs, meta.DiscTotal, meta.Discc)
	disc := firstNonEmpty(meta.Disc, meta.DiscNumber)
	if disc != "" && totalDiscs != "" && totalDiscs != "0" && totalDiscs != "1" {
		fmt.Fprintf(&b, "\nDisc: %s / %s", disc, totalDiscs)
	}

	// L6
	var extra string
	if t.Truthy(props.EOFReached) && t.Present(props.PlaylistPos) &&
		t.Int(props.PlaylistCount) > 0 && t.Int(props.PlaylistPos) >= 0 {
		if t.Int(props.PlaylistCount) > 1 &&
			t.Int(props.PlaylistPos)+1 == t.Int(props.PlaylistCount) {
			extra = "end of playlist"
		} else {
			extra = "EOF"
		}
	}
	if extra != "" {
		if s.Markup {
			fmt.Fprintf(&b, "\n<b>%s</b>", extra)
		} else {
			fmt.Fprintf(&b, "\n%s", extra)
		}
	}

	// L7
	if o.True(opts.Perfdata) {
		fmt.Fprintf(&b, "\nThumbnail postprocess timing (last µs): %d", s.ThumbnailElapsedUS)
		fmt.Fprintf(&b, "\nPrevious ntf show rtt (µs): %d", s.ShowElapsedUS)
	}

	// L8
	if o.True(opts.SendSubText) && t.Truthy(props.SubText) && t.Truthy(props.SubVisibility) {
		b.WriteString("\n")
		b.WriteString(t.Str(props.SubText))
	}

	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
