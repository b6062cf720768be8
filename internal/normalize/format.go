package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	youtubeWatch = regexp.MustCompile(`(?i)youtube\.com/watch\?v=([^&]+)`)
	youtubeShort = regexp.MustCompile(`(?i)youtu\.be/([^?]+)`)
	vimeoID      = regexp.MustCompile(`(?i)vimeo\.com/(\d+)`)
)

// toHTTPS upgrades plain http URLs
func toHTTPS(u string) string {
	if len(u) >= 7 && strings.EqualFold(u[:7], "http://") {
		return "https://" + u[7:]
	}
	return u
}

// toEmbed converts YouTube and Vimeo watch URLs into embeddable player URLs
func toEmbed(u string) string {
	if u == "" {
		return ""
	}
	u = toHTTPS(u)
	if m := youtubeWatch.FindStringSubmatch(u); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := youtubeShort.FindStringSubmatch(u); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := vimeoID.FindStringSubmatch(u); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	return u
}

// parseFinite parses a decimal string, rejecting NaN and infinities
func parseFinite(s string) (*float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}

func formatFloat(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// formatKm renders a distance as 1.23M km, 4.56k km or 789 km
func formatKm(raw string) string {
	v, ok := parseFinite(raw)
	if !ok {
		return raw
	}
	n := *v
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM km", n/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.2fk km", n/1000)
	}
	return fmt.Sprintf("%.0f km", n)
}

func formatSpeed(raw string) string {
	v, ok := parseFinite(raw)
	if !ok {
		return raw
	}
	return fmt.Sprintf("%.0f km/h", *v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
