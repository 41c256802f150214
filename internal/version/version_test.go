package version_test

import (
	"strings"
	"testing"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/version"
)

func TestGetInfo(t *testing.T) {
	info := version.GetInfo()

	if info.Name != version.Name || info.Version != version.Version {
		t.Errorf("GetInfo() = %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info version.Info
		want string
	}{
		{"plain", version.Info{Name: "NP", Version: "1.2.3"}, "NP v1.2.3"},
		{"short commit", version.Info{Name: "NP", Version: "1.2.3", GitCommit: "abc"}, "NP v1.2.3 (abc)"},
		{
			"long commit and build time",
			version.Info{Name: "NP", Version: "1.2.3", GitCommit: "0123456789abcdef", BuildTime: "2024-01-01"},
			"NP v1.2.3 (0123456) built 2024-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
