package host

import "testing"

func TestBannerFormat(t *testing.T) {
	info := Info{OS: "Linux", Arch: "x86_64"}
	got := info.Banner()
	want := "host: Linux/x86_64"
	if got != want {
		t.Errorf("Banner() = %q, want %q", got, want)
	}
}

func TestDetectNeverFails(t *testing.T) {
	info := Detect()
	if info.Arch == "" || info.OS == "" {
		t.Errorf("Detect() returned empty fields: %+v", info)
	}
}
