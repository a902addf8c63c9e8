package codec

import "testing"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{
			name:  "webp",
			input: "webp",
			want:  FormatWebP,
		},
		{
			name:  "jpg alias",
			input: "jpg",
			want:  FormatJPEG,
		},
		{
			name:  "uppercase",
			input: "AVIF",
			want:  FormatAVIF,
		},
		{
			name:  "surrounding whitespace",
			input: " png ",
			want:  FormatPNG,
		},
		{
			name:    "unknown format",
			input:   "bmp",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatMimeType(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatWebP, "image/webp"},
		{FormatAVIF, "image/avif"},
		{FormatJPEG, "image/jpeg"},
		{FormatPNG, "image/png"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.MimeType(); got != tt.want {
				t.Errorf("%s.MimeType() = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormatExt(t *testing.T) {
	for _, f := range Formats {
		if f.Ext() == "" {
			t.Errorf("%s.Ext() is empty", f)
		}
	}
}
