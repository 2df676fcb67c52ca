// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv         = "USERLOCATION"
	DefaultAddressTpl = "{{.Address}}"
	DefaultTooltipTpl = "{{with .Placemark}}{{.Name}}\n{{end}}{{loc \"center\"}}: {{floatFormat .Center.Lat 5}}, " +
		"{{floatFormat .Center.Lon 5}}\n{{loc \"routes\"}}: {{len .Routes}}{{range .Routes}}\n{{.Name}}: " +
		"{{floatFormat (km .Distance) 1}} km, {{duration .ExpectedTravelTime}}{{end}}\n" +
		"{{loc \"updated\"}}: {{localizedTime .UpdateTime}}"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Map struct {
		// Span of the region the map centers on the user location with, in meters
		RegionMeters float64 `fig:"region_meters" default:"1000"`
		// Minimum center movement in meters before the address is resolved again
		GeocodeDistance float64 `fig:"geocode_distance" default:"50"`
		StrokeColor     string  `fig:"stroke_color" default:"#0000ff"`
		// 0 disables truncation of the address label
		AddressMaxWidth int `fig:"address_max_width" default:"0"`
	} `fig:"map"`

	Permission struct {
		// Allowed values: static, geoclue
		Provider string `fig:"provider" default:"static"`
		// Initial state of the static provider
		State string `fig:"state" default:"not_determined"`
		// State the static provider moves to once permission was requested
		Grant            string        `fig:"grant" default:"authorized_when_in_use"`
		ServicesDisabled bool          `fig:"services_disabled"`
		DesktopID        string        `fig:"desktop_id" default:"userlocation"`
		PollInterval     time.Duration `fig:"poll_interval" default:"30s"`
	} `fig:"permission"`

	GeoLocation struct {
		File                   string `fig:"file"`
		GPSDAddress            string `fig:"gpsd_address" default:"localhost:2947"`
		DisableGeoIP           bool   `fig:"disable_geoip"`
		DisableGeolocationFile bool   `fig:"disable_geolocation_file"`
		DisableGPSD            bool   `fig:"disable_gpsd"`
		DisableICHNAEA         bool   `fig:"disable_ichnaea"`
	} `fig:"geolocation"`

	GeoCoder struct {
		// Allowed values: nominatim, opencage, geocode-earth
		Provider string `fig:"provider" default:"nominatim"`
		APIKey   string `fig:"apikey"`
		// Allowed values: memory, valkey
		Cache        string        `fig:"cache" default:"memory"`
		ValkeyAddr   string        `fig:"valkey_addr" default:"localhost:6379"`
		CacheHitTTL  time.Duration `fig:"cache_hit_ttl" default:"1h"`
		CacheMissTTL time.Duration `fig:"cache_miss_ttl" default:"5m"`
	} `fig:"geocoder"`

	Routing struct {
		// Allowed values: osrm
		Provider string `fig:"provider" default:"osrm"`
		Endpoint string `fig:"endpoint" default:"https://router.project-osrm.org"`
	} `fig:"routing"`

	Notifier struct {
		// Allowed values: log, desktop
		Provider string `fig:"provider" default:"log"`
		// Display time of desktop notifications, 0 lets the server decide
		Timeout time.Duration `fig:"timeout"`
	} `fig:"notifier"`

	API struct {
		Disable bool   `fig:"disable"`
		Listen  string `fig:"listen" default:"127.0.0.1:8238"`
	} `fig:"api"`

	Events struct {
		// Empty disables event publishing
		NATSURL string `fig:"nats_url"`
		Subject string `fig:"subject" default:"userlocation"`
	} `fig:"events"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"30s"`
	} `fig:"intervals"`

	Templates struct {
		Address string `fig:"address"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Map.RegionMeters <= 0 {
		return fmt.Errorf("invalid map region span: %f", c.Map.RegionMeters)
	}
	if c.Map.GeocodeDistance < 0 {
		return fmt.Errorf("invalid geocode distance: %f", c.Map.GeocodeDistance)
	}
	if !hexColor.MatchString(c.Map.StrokeColor) {
		return fmt.Errorf("invalid stroke color: %s", c.Map.StrokeColor)
	}
	if c.Map.AddressMaxWidth < 0 {
		return fmt.Errorf("invalid address max width: %d", c.Map.AddressMaxWidth)
	}
	switch strings.ToLower(c.Permission.Provider) {
	case "static", "geoclue":
	default:
		return fmt.Errorf("invalid permission provider: %s", c.Permission.Provider)
	}
	switch strings.ToLower(c.GeoCoder.Cache) {
	case "memory", "valkey":
	default:
		return fmt.Errorf("invalid geocoder cache: %s", c.GeoCoder.Cache)
	}
	switch strings.ToLower(c.Notifier.Provider) {
	case "log", "desktop":
	default:
		return fmt.Errorf("invalid notifier provider: %s", c.Notifier.Provider)
	}
	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	if c.Templates.Address == "" {
		c.Templates.Address = DefaultAddressTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", "userlocation", "geolocation")
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
