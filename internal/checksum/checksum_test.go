package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("") is well known.
	if got := Sum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestMatch(t *testing.T) {
	tag := ETag([]byte(`{"id":"app_1"}`))
	cases := []struct {
		header string
		want   bool
	}{
		{"", false},
		{tag, true},
		{"*", true},
		{`"other", ` + tag, true},
		{"W/" + tag, true},
		{`"other"`, false},
	}
	for _, c := range cases {
		if got := Match(c.header, tag); got != c.want {
			t.Errorf("Match(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}
