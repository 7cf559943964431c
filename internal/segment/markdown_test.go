package segment

import "testing"

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "Headers and paragraphs",
			markdown: "# Title\n\nThis is a paragraph. It has two sentences.",
			want:     "Title. This is a paragraph. It has two sentences.",
		},
		{
			name:     "Lists",
			markdown: "- First item\n- Second item",
			want:     "First item. Second item.",
		},
		{
			name:     "Code blocks are skipped",
			markdown: "Here is some text.\n\n```go\nfmt.Println(\"Hello\")\n```\n\nMore text here.",
			want:     "Here is some text. More text here.",
		},
		{
			name:     "Links keep their text",
			markdown: "Visit [Google](https://google.com) for more info.",
			want:     "Visit Google for more info.",
		},
		{
			name:     "Emphasis",
			markdown: "This is **bold** and *italic* text.",
			want:     "This is bold and italic text.",
		},
		{
			name:     "Empty",
			markdown: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdown(tt.markdown); got != tt.want {
				t.Errorf("StripMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
