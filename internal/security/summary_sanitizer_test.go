package security

import "testing"

func TestSummarySanitizer_Strip(t *testing.T) {
	sanitizer := NewSummarySanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Go 1.25がリリースされました",
			want:  "Go 1.25がリリースされました",
		},
		{
			name:  "タグを除去",
			input: "<p>Goの<strong>新機能</strong>について</p>",
			want:  "Goの新機能について",
		},
		{
			name:  "scriptタグと中身を除去",
			input: "記事本文<script>alert('xss')</script>の続き",
			want:  "記事本文の続き",
		},
		{
			name:  "実体参照をデコード",
			input: "Tips &amp; Tricks &lt;Go&gt;",
			want:  "Tips & Tricks <Go>",
		},
		{
			name:  "連続空白と改行を1スペースにまとめる",
			input: "<p>第一段落</p>\n\n<p>第二段落</p>\t  末尾",
			want:  "第一段落 第二段落 末尾",
		},
		{
			name:  "画像タグを除去",
			input: `<img src="https://example.com/cover.png" alt="cover">記事概要`,
			want:  "記事概要",
		},
		{
			name:  "リンクはテキストのみ残す",
			input: `詳細は<a href="https://example.com">こちら</a>を参照`,
			want:  "詳細はこちらを参照",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "タグのみの入力は空文字列",
			input: "<div><br></div>",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Strip(tt.input); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSummarySanitizer_Idempotent は同一入力に対して常に同一出力を返すことをテストする。
func TestSummarySanitizer_Idempotent(t *testing.T) {
	sanitizer := NewSummarySanitizer()

	input := "<p>冪等性の<em>確認</em>用テキスト &amp; 記号</p>"
	first := sanitizer.Strip(input)
	second := sanitizer.Strip(first)

	if first != second {
		t.Errorf("Strip is not idempotent: first = %q, second = %q", first, second)
	}
}
