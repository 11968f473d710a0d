//
//  internal/requestinfo/requestinfo.go
//
//  Per-request client metadata (user-agent fingerprint, IP, and country)
//  attached to every audited moderation action.  The structs are inert
//  and safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Browser  string `json:"browser,omitempty"`
	Version  string `json:"version,omitempty"`
	OS       string `json:"os,omitempty"`
	Device   string `json:"device,omitempty"`
	Platform string `json:"platform,omitempty"`
	IsBot    bool   `json:"bot,omitempty"`
}

// Geo holds best-effort location hints.
type Geo struct {
	IP         net.IP `json:"-"`
	CountryISO string `json:"country,omitempty"`
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        UA        `json:"ua"`
	Geo       Geo       `json:"geo"`
	Timestamp time.Time `json:"-"`
}

// Addr returns the client IP as text, or "" when unknown.
func (ri *RequestInfo) Addr() string {
	if ri == nil || ri.Geo.IP == nil {
		return ""
	}
	return ri.Geo.IP.String()
}

/*──────────────────────────── geo database ────────────────────────────────*/

var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2 Country or City database.  Without it lookups
// return only the IP.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the database opened by InitGeo.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		_ = r.Close()
	}
}

/*──────────────────────────── context ─────────────────────────────────────*/

type ctxKey struct{}

// WithInfo stores ri in ctx.
func WithInfo(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func parseUA(header string) UA {
	if header == "" {
		return UA{}
	}
	u := uasurfer.Parse(header)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}
	return UA{
		Browser:  strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:  trimVersion(u.Browser.Version),
		OS:       osName,
		Device:   deviceName(u.DeviceType),
		Platform: strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:    u.IsBot(),
	}
}

// trimVersion renders "major.minor.patch" without trailing ".0" parts.
func trimVersion(v uasurfer.Version) string {
	parts := []int{v.Major, v.Minor, v.Patch}
	for len(parts) > 1 && parts[len(parts)-1] == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, ".")
}

func deviceName(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}
