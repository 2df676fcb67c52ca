// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package events publishes resolved addresses and calculated routes to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/paulmach/orb/geojson"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/routing"
)

const (
	subjectAddress = "address"
	subjectRoutes  = "routes"
	reconnectWait  = 2 * time.Second
)

type AddressEvent struct {
	Center    geo.Coordinate    `json:"center"`
	Address   string            `json:"address"`
	Placemark geocode.Placemark `json:"placemark"`
	Time      time.Time         `json:"time"`
}

type RoutesEvent struct {
	RequestID   string                     `json:"request_id"`
	Source      geo.Coordinate             `json:"source"`
	Destination geo.Coordinate             `json:"destination"`
	Mode        string                     `json:"mode"`
	Routes      *geojson.FeatureCollection `json:"routes"`
	Time        time.Time                  `json:"time"`
}

// Publisher sends controller events as JSON messages below a subject prefix, e.g.
// "userlocation.address". Publishing is fire-and-forget; failures are logged.
type Publisher struct {
	conn    *nats.Conn
	prefix  string
	logger  *logger.Logger
	publish func(subject string, data []byte) error
}

// New connects to the NATS server at url. The connection is retried in the background when the
// server is not reachable yet.
func New(url, prefix string, log *logger.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(prefix),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	pub := newPublisher(prefix, log, conn.Publish)
	pub.conn = conn
	return pub, nil
}

func newPublisher(prefix string, log *logger.Logger, publish func(string, []byte) error) *Publisher {
	return &Publisher{
		prefix:  prefix,
		logger:  log,
		publish: publish,
	}
}

func (p *Publisher) AddressResolved(_ context.Context, center geo.Coordinate, address string,
	placemark geocode.Placemark,
) {
	p.send(subjectAddress, AddressEvent{
		Center:    center,
		Address:   address,
		Placemark: placemark,
		Time:      time.Now(),
	})
}

func (p *Publisher) RoutesCalculated(_ context.Context, requestID string, req routing.Request,
	routes []routing.Route,
) {
	collection := geojson.NewFeatureCollection()
	for _, route := range routes {
		feature := geojson.NewFeature(route.Polyline)
		feature.Properties["name"] = route.Name
		feature.Properties["distance"] = route.Distance
		feature.Properties["expected_travel_time"] = route.ExpectedTravelTime.Seconds()
		collection.Append(feature)
	}
	p.send(subjectRoutes, RoutesEvent{
		RequestID:   requestID,
		Source:      req.Source,
		Destination: req.Destination,
		Mode:        req.Mode.String(),
		Routes:      collection,
		Time:        time.Now(),
	})
}

func (p *Publisher) send(kind string, event any) {
	subject := p.prefix + "." + kind
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", slog.String("subject", subject), logger.Err(err))
		return
	}
	if err = p.publish(subject, data); err != nil {
		p.logger.Error("failed to publish event", slog.String("subject", subject), logger.Err(err))
		return
	}
	p.logger.Debug("event published", slog.String("subject", subject))
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Error("failed to drain NATS connection", logger.Err(err))
	}
}
