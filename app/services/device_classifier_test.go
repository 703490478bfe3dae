package services

import (
	"testing"

	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   *string
		want models.DeviceType
	}{
		{name: "missing header", ua: nil, want: models.DeviceTypeUnknown},
		{name: "empty header", ua: utils.ToPtr(""), want: models.DeviceTypeUnknown},
		{name: "invalid utf8", ua: utils.ToPtr(string([]byte{0xff, 0xfe, 'a'})), want: models.DeviceTypeUnknown},
		{
			name: "iphone safari",
			ua:   utils.ToPtr("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15"),
			want: models.DeviceTypeMobile,
		},
		{
			name: "android chrome",
			ua:   utils.ToPtr("Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36"),
			want: models.DeviceTypeMobile,
		},
		{name: "ipad", ua: utils.ToPtr("Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)"), want: models.DeviceTypeMobile},
		{name: "mixed case marker", ua: utils.ToPtr("SomeBot MOBILE/1.0"), want: models.DeviceTypeMobile},
		{
			name: "desktop chrome",
			ua:   utils.ToPtr("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"),
			want: models.DeviceTypeDesktop,
		},
		{name: "curl", ua: utils.ToPtr("curl/8.4.0"), want: models.DeviceTypeDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDevice(tt.ua))
		})
	}
}
