package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"trainload/internal/analysis"
)

// Garmin TrainingCenterDatabase v2. Element names are matched on their local
// part, so the ns2/ns3 ActivityExtension prefixes both resolve.
type tcxDatabase struct {
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	Tracks []tcxTrack `xml:"Track"`
}

type tcxTrack struct {
	Points []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time      string `xml:"Time"`
	HeartRate string `xml:"HeartRateBpm>Value"`
	Watts     string `xml:"Extensions>TPX>Watts"`
	Speed     string `xml:"Extensions>TPX>Speed"` // m/s
}

var tcxTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func decodeTCX(r io.Reader) ([]point, Meta, error) {
	var db tcxDatabase
	if err := xml.NewDecoder(r).Decode(&db); err != nil {
		return nil, Meta{}, fmt.Errorf("decode TCX file: %w", err)
	}

	meta := Meta{SportHint: analysis.SportAuto}
	var points []point
	for ai, act := range db.Activities {
		if ai == 0 {
			meta.SportHint = sportFromName(act.Sport)
		}
		for _, lap := range act.Laps {
			for _, track := range lap.Tracks {
				for _, tp := range track.Points {
					ts, ok := parseTCXTime(tp.Time)
					if !ok {
						// nothing to place it on the time axis
						continue
					}
					p := point{ts: ts}
					if w, ok := parseFloat(tp.Watts); ok {
						p.power = &w
					}
					if hr, ok := parseFloat(tp.HeartRate); ok && hr > 0 {
						bpm := int(hr)
						p.heartrate = &bpm
					}
					if mps, ok := parseFloat(tp.Speed); ok {
						kmh := mps * 3.6
						p.speedKmh = &kmh
					}
					points = append(points, p)
				}
			}
		}
	}
	return points, meta, nil
}

func parseTCXTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tcxTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
