package htmltext

import "testing"

func TestToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{"paragraphs", "<p>First <strong>bold</strong> line.</p><p>Second   line.</p>", "First bold line.\nSecond line."},
		{"br", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"entities", "<p>Fish &amp; chips &mdash; &lt;hot&gt;</p>", "Fish & chips — <hot>"},
		{"list", "<ul><li>alpha</li><li>beta</li></ul>", "- alpha\n- beta"},
		{"script dropped", "<p>ok</p><script>alert(1)</script><style>p{}</style>", "ok"},
		{"calibre div", "<div>\n<p>Summary.</p>\n</div>", "Summary."},
		{"unclosed", "<p>dangling <em>emphasis", "dangling emphasis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToText(tt.in); got != tt.want {
				t.Errorf("ToText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
