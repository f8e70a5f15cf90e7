package utils

import (
	"os"
	"testing"
)

func TestRemoveFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips leading block",
			in:   "---\ntitle: Story\nauthor: me\n---\n# Hello\n",
			want: "# Hello\n",
		},
		{
			name: "no frontmatter",
			in:   "# Hello\n\nBody text.\n",
			want: "# Hello\n\nBody text.\n",
		},
		{
			name: "fence not at start",
			in:   "# Hello\n---\ntitle: x\n---\n",
			want: "# Hello\n---\ntitle: x\n---\n",
		},
		{
			name: "unclosed fence",
			in:   "---\ntitle: Story\n",
			want: "---\ntitle: Story\n",
		},
		{
			name: "thematic break later is kept",
			in:   "---\na: 1\n---\nBody\n\n---\n\nMore\n",
			want: "Body\n\n---\n\nMore\n",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RemoveFrontmatter([]byte(tt.in))); got != tt.want {
				t.Errorf("RemoveFrontmatter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("TTS_LOCAL_TEST_DIR", "/opt/voices")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/voices", home + "/voices"},
		{"$TTS_LOCAL_TEST_DIR/narrator.wav", "/opt/voices/narrator.wav"},
		{"/absolute/path.wav", "/absolute/path.wav"},
		{"relative/path.wav", "relative/path.wav"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsMarkdownFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"story.md", true},
		{"story.markdown", true},
		{"STORY.MD", true},
		{"notes.mkdn", true},
		{"notes.mdown", true},
		{"notes.mkd", true},
		{"story.txt", false},
		{"story.md.bak", false},
		{"md", false},
	}

	for _, tt := range tests {
		if got := IsMarkdownFile(tt.name); got != tt.want {
			t.Errorf("IsMarkdownFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Déjà Vu", "Deja Vu"},
		{"Ana Flôrence", "Ana Florence"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
