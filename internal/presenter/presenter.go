// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter renders the address label and its tooltip as waybar JSON output.
package presenter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"
	"golang.org/x/text/language"

	"github.com/wneessen/userlocation/internal/config"
	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/routing"
)

const (
	OutputClass  = "userlocation"
	ellipsis     = "…"
	classIdle    = "idle"
	classRouting = "routing"
)

var i18nVars = map[string]localize.MsgID{
	"center":   "Center",
	"routes":   "Routes",
	"updated":  "Updated",
	"warning":  "Warning",
	"error":    "Error",
	"address":  "Address",
	"tracking": "Tracking",
}

// Output is a single line of waybar custom module output.
type Output struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip"`
	Class   []string `json:"class"`
}

type TemplateContext struct {
	Address       string
	Placemark     *geocode.Placemark
	Center        geo.Coordinate
	Authorization string
	Tracking      bool
	Routes        []routing.Route
	UpdateTime    time.Time
}

type Presenter struct {
	address   *template.Template
	tooltip   *template.Template
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	maxWidth  int
}

// New parses the configured templates. Timestamps are formatted for the given language.
func New(conf *config.Config, loc *spreak.Localizer, lang language.Tag) (*Presenter, error) {
	p := &Presenter{
		localizer: loc,
		humanizer: humanize.MustNew(humanize.WithLocale(de.New())).CreateHumanizer(lang),
		maxWidth:  conf.Map.AddressMaxWidth,
	}

	tpl, err := template.New("address").Funcs(p.templateFuncMap()).Parse(conf.Templates.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address template: %w", err)
	}
	p.address = tpl

	tpl, err = template.New("tooltip").Funcs(p.templateFuncMap()).Parse(conf.Templates.Tooltip)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tooltip template: %w", err)
	}
	p.tooltip = tpl

	return p, nil
}

// BuildContext combines the address label, the map center and the controller state.
func (p *Presenter) BuildContext(address string, center geo.Coordinate, snap controller.Snapshot) TemplateContext {
	return TemplateContext{
		Address:       address,
		Placemark:     snap.Placemark,
		Center:        center,
		Authorization: snap.Authorization.String(),
		Tracking:      snap.Tracking,
		Routes:        snap.Routes,
		UpdateTime:    snap.UpdatedAt,
	}
}

// Render executes the templates. The label is truncated to the configured width.
func (p *Presenter) Render(ctx TemplateContext) (Output, error) {
	text, tooltip := new(bytes.Buffer), new(bytes.Buffer)
	if err := p.address.Execute(text, ctx); err != nil {
		return Output{}, fmt.Errorf("failed to render address template: %w", err)
	}
	if err := p.tooltip.Execute(tooltip, ctx); err != nil {
		return Output{}, fmt.Errorf("failed to render tooltip template: %w", err)
	}

	classes := []string{OutputClass, ctx.Authorization}
	switch {
	case len(ctx.Routes) > 0:
		classes = append(classes, classRouting)
	case !ctx.Tracking:
		classes = append(classes, classIdle)
	}
	return Output{
		Text:    p.truncate(text.String()),
		Tooltip: tooltip.String(),
		Class:   classes,
	}, nil
}

func (p *Presenter) truncate(label string) string {
	if p.maxWidth <= 0 {
		return label
	}
	return runewidth.Truncate(label, p.maxWidth, ellipsis)
}

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"localizedTime": p.localizedTime,
		"timeFormat":    timeFormat,
		"floatFormat":   floatFormat,
		"km":            km,
		"duration":      duration,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	if raw, ok := i18nVars[strings.ToLower(val)]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}

func km(meters float64) float64 {
	return meters / 1000
}

func duration(val time.Duration) string {
	return val.Round(time.Minute).String()
}
