package services

import (
	"strings"
	"unicode/utf8"

	"github.com/amirphl/rotalink/models"
)

var mobileUserAgentMarkers = []string{"mobile", "android", "iphone", "ipad"}

// ClassifyDevice derives the device class of a visit from its User-Agent header.
// A missing, empty or non UTF-8 header yields DeviceTypeUnknown.
func ClassifyDevice(userAgent *string) models.DeviceType {
	if userAgent == nil || *userAgent == "" || !utf8.ValidString(*userAgent) {
		return models.DeviceTypeUnknown
	}

	ua := strings.ToLower(*userAgent)
	for _, marker := range mobileUserAgentMarkers {
		if strings.Contains(ua, marker) {
			return models.DeviceTypeMobile
		}
	}
	return models.DeviceTypeDesktop
}
