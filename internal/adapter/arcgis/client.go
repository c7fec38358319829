// Package arcgis fetches lane closure features from the HDOT ArcGIS feature
// service.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gptogo/lane-closure-impact/internal/domain"
)

// DefaultBaseURL is the HDOT lane closure feature layer query endpoint.
const DefaultBaseURL = "https://services.arcgis.com/HQ0xoN0EzDPBOEci/arcgis/rest/services/Lane_Closure_WFL1_View_NoEd/FeatureServer/0/query"

// arcgisTimestampLayout is the timestamp literal format the service expects
// in WHERE clauses, in UTC.
const arcgisTimestampLayout = "2006-01-02 15:04:05"

// lookaheadWindow bounds each query to closures overlapping the next 24 hours.
const lookaheadWindow = 24 * time.Hour

// outFields is the explicit attribute list requested on every query. No
// wildcard is used, so downstream code can rely on a fixed, fully-known
// feature shape.
var outFields = []string{
	"Active", "begDyWk", "beginDate", "CloseFact", "ClosHours", "ClosReason",
	"ClosType", "ClosureSide", "direct", "DIRPInfo", "DirPRemarks", "enDate",
	"enDyWk", "IntersFrom", "IntersTo", "intsfroml", "intstol", "Island",
	"NumLanes", "OBJECTID", "Remarks", "RoadName", "Route", "RteDirn",
}

// Client queries the feature service for active, driver-relevant closures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a feature service client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
}

// FetchClosures retrieves the raw closure records for one island partition
// that intersect the 24-hour lookahead window. Records are returned as
// emitted by the service; normalization and ordering belong to the caller.
func (c *Client) FetchClosures(ctx context.Context, island string) ([]domain.ClosureRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildQueryURL(island), nil)
	if err != nil {
		return nil, fmt.Errorf("create closure query: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("closure query: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("closure query: %w: status %d: %s", domain.ErrUpstreamData, resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("closure query: %w: decode response: %v", domain.ErrUpstreamData, err)
	}

	// ArcGIS reports service-level failures as a 200 with an error envelope.
	if fc.Error != nil {
		return nil, fmt.Errorf("closure query: %w: %s (code %d)", domain.ErrUpstreamData, fc.Error.Message, fc.Error.Code)
	}

	records := make([]domain.ClosureRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Properties.ObjectID == nil {
			c.logger.Warn("skipping closure feature without OBJECTID", "island", island)
			continue
		}
		records = append(records, toClosureRecord(f.Properties))
	}
	return records, nil
}

// buildQueryURL assembles the filtered, time-windowed query: active closures
// flagged as driver-relevant, excluding sidewalk work, overlapping the
// lookahead window, restricted to the island partition.
func (c *Client) buildQueryURL(island string) string {
	start := c.clock.Now().UTC()
	end := start.Add(lookaheadWindow)

	where := strings.Join([]string{
		"(beginDate <> enDate)",
		"(Active = '1')",
		"(DIRPInfo = 'Yes')",
		"(CloseFact <> 'Sidewalk')",
		fmt.Sprintf("(beginDate <= timestamp '%s')", end.Format(arcgisTimestampLayout)),
		fmt.Sprintf("(enDate >= timestamp '%s')", start.Format(arcgisTimestampLayout)),
		fmt.Sprintf("(Island = '%s')", island),
	}, " and ")

	params := url.Values{
		"where":          {where},
		"outFields":      {strings.Join(outFields, ",")},
		"returnGeometry": {"false"},
		"f":              {"geoJson"},
	}
	return c.baseURL + "?" + params.Encode()
}

func toClosureRecord(p closureProperties) domain.ClosureRecord {
	return domain.ClosureRecord{
		ID:             *p.ObjectID,
		Route:          p.Route,
		Direction:      p.Direct,
		FromLocation:   p.IntsFromL,
		ToLocation:     p.IntsToL,
		BeginTime:      p.BeginDate,
		EndTime:        p.EnDate,
		NumLanesClosed: intPtr(p.NumLanes),
		ClosureSide:    p.ClosureSide,
		ClosureFactor:  p.CloseFact,
		ClosureReason:  p.ClosReason,
		Details:        p.DirPRemarks,
		Remarks:        p.Remarks,
		HoursPattern:   p.ClosHours,
		Island:         p.Island,
	}
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// Feature service response types.

type featureCollection struct {
	Features []feature      `json:"features"`
	Error    *errorEnvelope `json:"error"`
}

type feature struct {
	Properties closureProperties `json:"properties"`
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// closureProperties mirrors the requested outFields. Every attribute is
// nullable in the feed.
type closureProperties struct {
	Active      *float64 `json:"Active"`
	BegDyWk     *string  `json:"begDyWk"`
	BeginDate   *int64   `json:"beginDate"`
	CloseFact   *string  `json:"CloseFact"`
	ClosHours   *string  `json:"ClosHours"`
	ClosReason  *string  `json:"ClosReason"`
	ClosType    *string  `json:"ClosType"`
	ClosureSide *string  `json:"ClosureSide"`
	Direct      *string  `json:"direct"`
	DIRPInfo    *string  `json:"DIRPInfo"`
	DirPRemarks *string  `json:"DirPRemarks"`
	EnDate      *int64   `json:"enDate"`
	EnDyWk      *string  `json:"enDyWk"`
	IntersFrom  *string  `json:"IntersFrom"`
	IntersTo    *string  `json:"IntersTo"`
	IntsFromL   *string  `json:"intsfroml"`
	IntsToL     *string  `json:"intstol"`
	Island      *string  `json:"Island"`
	NumLanes    *float64 `json:"NumLanes"`
	ObjectID    *int64   `json:"OBJECTID"`
	Remarks     *string  `json:"Remarks"`
	RoadName    *string  `json:"RoadName"`
	Route       *string  `json:"Route"`
	RteDirn     *string  `json:"RteDirn"`
}
