package textutil

import "testing"

func TestSlugToTitleCase(t *testing.T) {
	tests := map[string]string{
		"welcome-to-the-machine": "Welcome-To-The-Machine",
		"the_iPhone-story":       "The-IPhone-Story",
		"  --  ":                 "",
		"episode-42":             "Episode-42",
	}
	for in, want := range tests {
		if got := SlugToTitleCase(in); got != want {
			t.Fatalf("SlugToTitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClipToken(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"open the pod bay", 20, "open_the_pod_bay"},
		{"what's next?", 20, "what_s_next_"},
		{"a very long query about everything", 20, "a_very_long_query_ab"},
		{"héllo", 0, "h_llo"},
		{"", 20, ""},
	}
	for _, tc := range tests {
		if got := ClipToken(tc.in, tc.limit); got != tc.want {
			t.Fatalf("ClipToken(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` Cron: Job/"Live" `); got != "Cron- Job-Live" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}
