package notify

import "testing"

// TestParseSeverity はParseSeverityによる重大度文字列の検証を確認する。
func TestParseSeverity(t *testing.T) {
	t.Parallel()

	t.Run("既知の重大度が変換できること", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"info", "warning", "critical"} {
			got, err := ParseSeverity(s)
			if err != nil {
				t.Errorf("ParseSeverity(%q)でエラーが発生: %v", s, err)
			}
			if string(got) != s {
				t.Errorf("ParseSeverity(%q) = %q", s, got)
			}
		}
	})

	t.Run("未知の重大度でエラーが返ること", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"", "fatal", "debug", "INFO", "Critical"} {
			if _, err := ParseSeverity(s); err == nil {
				t.Errorf("ParseSeverity(%q)がエラーを返すべき", s)
			}
		}
	})
}
