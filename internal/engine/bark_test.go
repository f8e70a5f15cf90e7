package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestBarkArgs(t *testing.T) {
	eng, err := NewBark(Config{})
	if err != nil {
		t.Fatalf("NewBark() error: %v", err)
	}

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "minimal",
			req:  Request{Text: "hello there"},
			want: []string{"-m", "bark", "--text", "hello there", "--output_filename", "/tmp/out.wav"},
		},
		{
			name: "with preset",
			req:  Request{Text: "hallo", HistoryPrompt: "v2/de_speaker_3"},
			want: []string{
				"-m", "bark", "--text", "hallo", "--output_filename", "/tmp/out.wav",
				"--history_prompt", "v2/de_speaker_3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eng.args(tt.req, "/tmp/out.wav")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestBarkCheckRequest(t *testing.T) {
	eng, err := NewBark(Config{})
	if err != nil {
		t.Fatalf("NewBark() error: %v", err)
	}

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty", Request{}, ErrEmptyText},
		{"too long", Request{Text: strings.Repeat("b", barkMaxTextChars+1)}, ErrTextTooLong},
		{"speaker wav", Request{Text: "hi", SpeakerWAV: "/tmp/v.wav"}, ErrUnsupportedOption},
		{"speaker id", Request{Text: "hi", SpeakerID: "someone"}, ErrUnsupportedOption},
		{"preset ok", Request{Text: "hi", HistoryPrompt: "v2/en_speaker_6"}, nil},
		{"language ignored", Request{Text: "hi", Language: "de"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.checkRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkRequest() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkRequest() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBarkPresets(t *testing.T) {
	all := BarkPresets("")
	if len(all) != len(barkPresetLanguages)*10 {
		t.Errorf("BarkPresets(\"\") = %d presets, want %d",
			len(all), len(barkPresetLanguages)*10)
	}

	de := BarkPresets("de")
	if len(de) != 10 {
		t.Fatalf("BarkPresets(de) = %d presets, want 10", len(de))
	}
	for _, p := range de {
		if !strings.HasPrefix(p, "v2/de_speaker_") {
			t.Errorf("german preset %q has wrong prefix", p)
		}
	}

	if got := BarkPresets("xx"); len(got) != 0 {
		t.Errorf("BarkPresets(xx) = %v, want none", got)
	}
}
