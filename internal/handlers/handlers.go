package handlers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/registry"
	"github.com/vyrodovalexey/avadispatch/internal/router"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// Built-in handler names.
const (
	NamePing   = "ping"
	NameEcho   = "echo"
	NameTime   = "time"
	NameRoutes = "routes"
)

// PathLister returns the currently registered paths.
type PathLister func() []router.Path

// Catalog returns a catalog holding every built-in handler. routes lists
// the paths served by the routes handler.
func Catalog(routes PathLister) *registry.Catalog {
	return registry.NewCatalog().
		Add(NamePing, Ping()).
		Add(NameEcho, Echo()).
		Add(NameTime, Time(time.Now)).
		Add(NameRoutes, Routes(routes))
}

// PingResult is the ping response body.
type PingResult struct {
	XMLName xml.Name `json:"-" yaml:"-" xml:"ping"`
	OK      bool     `json:"ok" yaml:"ok" xml:"ok"`
}

// Ping answers {"ok":true}.
func Ping() dispatch.Handler {
	return dispatch.HandlerFunc(func(context.Context, *dispatch.Request) (any, error) {
		return PingResult{OK: true}, nil
	})
}

// Header is one request header in an echo.
type Header struct {
	Name   string   `json:"name" yaml:"name" xml:"name,attr"`
	Values []string `json:"values" yaml:"values" xml:"value"`
}

// Param is one path parameter in an echo.
type Param struct {
	Name  string `json:"name" yaml:"name" xml:"name,attr"`
	Value string `json:"value" yaml:"value" xml:",chardata"`
}

// EchoResult describes the request the echo handler received.
type EchoResult struct {
	XMLName   xml.Name `json:"-" yaml:"-" xml:"echo"`
	RequestID string   `json:"requestId" yaml:"requestId" xml:"requestId"`
	Method    string   `json:"method" yaml:"method" xml:"method"`
	URI       string   `json:"uri" yaml:"uri" xml:"uri"`
	Params    []Param  `json:"params,omitempty" yaml:"params,omitempty" xml:"param"`
	Headers   []Header `json:"headers" yaml:"headers" xml:"header"`
	Body      string   `json:"body,omitempty" yaml:"body,omitempty" xml:"body,omitempty"`
	// Decoded is the body parsed with the codec named by Content-Type,
	// when it parses.
	Decoded any `json:"decoded,omitempty" yaml:"decoded,omitempty" xml:"-"`
}

// Echo returns the request it received.
func Echo() dispatch.Handler {
	return dispatch.HandlerFunc(func(_ context.Context, req *dispatch.Request) (any, error) {
		res := EchoResult{
			RequestID: req.ID,
			Method:    req.Method,
			URI:       req.URI,
			Body:      string(req.Body),
		}

		for name, value := range req.Params {
			res.Params = append(res.Params, Param{Name: name, Value: value})
		}
		sort.Slice(res.Params, func(i, j int) bool { return res.Params[i].Name < res.Params[j].Name })

		for name, values := range req.Header {
			res.Headers = append(res.Headers, Header{Name: name, Values: values})
		}
		sort.Slice(res.Headers, func(i, j int) bool { return res.Headers[i].Name < res.Headers[j].Name })

		if len(req.Body) > 0 {
			var decoded any
			if err := req.Decode(&decoded); err == nil {
				res.Decoded = decoded
			}
		}

		return res, nil
	})
}

// TimeResult is the time response body.
type TimeResult struct {
	XMLName  xml.Name `json:"-" yaml:"-" xml:"time"`
	Time     string   `json:"time" yaml:"time" xml:"value"`
	Unix     int64    `json:"unix" yaml:"unix" xml:"unix"`
	Timezone string   `json:"timezone" yaml:"timezone" xml:"timezone"`
}

// Time reports the server time. The optional tz query parameter selects
// an IANA time zone; an unknown zone is a 400.
func Time(now func() time.Time) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ context.Context, req *dispatch.Request) (any, error) {
		t := now()

		if tz := req.Query().Get("tz"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return nil, util.NewStatusErrorWithCause(http.StatusBadRequest,
					fmt.Sprintf("unknown time zone %q", tz), err)
			}
			t = t.In(loc)
		}

		return TimeResult{
			Time:     t.Format(time.RFC3339Nano),
			Unix:     t.Unix(),
			Timezone: t.Location().String(),
		}, nil
	})
}

// RouteInfo describes one registered path.
type RouteInfo struct {
	Method  string `json:"method" yaml:"method" xml:"method,attr"`
	Pattern string `json:"pattern" yaml:"pattern" xml:"pattern,attr"`
	Match   string `json:"match" yaml:"match" xml:"match,attr"`
}

// RouteList is the routes response body.
type RouteList struct {
	XMLName xml.Name    `json:"-" yaml:"-" xml:"routes"`
	Routes  []RouteInfo `json:"routes" yaml:"routes" xml:"route"`
}

// DescribeRoutes converts paths to their response form, in scan order.
func DescribeRoutes(paths []router.Path) RouteList {
	list := RouteList{Routes: make([]RouteInfo, 0, len(paths))}
	for _, p := range paths {
		list.Routes = append(list.Routes, RouteInfo{
			Method:  p.Method.String(),
			Pattern: p.Pattern,
			Match:   p.Mode.String(),
		})
	}
	return list
}

// Routes lists the registered paths.
func Routes(paths PathLister) dispatch.Handler {
	return dispatch.HandlerFunc(func(context.Context, *dispatch.Request) (any, error) {
		if paths == nil {
			return DescribeRoutes(nil), nil
		}
		return DescribeRoutes(paths()), nil
	})
}
