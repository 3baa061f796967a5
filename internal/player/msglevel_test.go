package player

import "testing"

func TestLevelFromMsgLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client string
		spec   string
		want   string
	}{
		{"empty spec", "osd", "", "error"},
		{"no match", "osd", "ffmpeg=v", "error"},
		{"exact match", "osd", "osd=v", "debug"},
		{"all matches", "osd", "all=debug", "trace"},
		{"later entry wins", "osd", "all=v,osd=no", "quiet"},
		{"later all wins too", "osd", "osd=v,all=no", "quiet"},
		{"trace maps to trace", "osd", "osd=trace", "trace"},
		{"unknown level falls back", "osd", "osd=warnish", "error"},
		{"pair without equals skipped", "osd", "garbage,osd=v", "debug"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := LevelFromMsgLevel(tc.client, tc.spec); got != tc.want {
				t.Fatalf("LevelFromMsgLevel(%q, %q) = %q, want %q",
					tc.client, tc.spec, got, tc.want)
			}
		})
	}
}
