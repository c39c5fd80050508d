// Package api provides rest-like server
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth_chi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-pkgz/lcw/v2"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"

	"github.com/umputun/daterange/app/config"
	"github.com/umputun/daterange/app/daterange"
	"github.com/umputun/daterange/app/printer"
)

// Server provides HTTP API
type Server struct {
	Version  string
	Conf     config.Conf
	Limit    int           // max dates in a single response
	CacheTTL time.Duration // response cache ttl

	httpServer *http.Server
	cache      lcw.LoadingCache[response]
}

// response is a cached response body, sized for lcw's MaxCacheSize
type response []byte

// Size implements lcw.Sizer
func (r response) Size() int { return len(r) }

// RangeResponse is the json body returned for a range
type RangeResponse struct {
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
	Dates     []string `json:"dates"`
}

// errBadRequest marks errors caused by request parameters
var errBadRequest = errors.New("bad request")

const defaultLimit = 10000

// Run starts http server for API with all routes, blocks until ctx is done
func (s *Server) Run(ctx context.Context, port int) error {
	log.Printf("[INFO] activate rest server on port %d", port)
	if s.cache == nil {
		if err := s.makeCache(); err != nil {
			return fmt.Errorf("make loading cache: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http server shutdown, %v", err)
		}
	}()

	err := s.httpServer.ListenAndServe()
	log.Printf("[WARN] http server terminated, %s", err)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) makeCache() (err error) {
	ttl := s.CacheTTL
	if ttl == 0 {
		ttl = time.Minute * 5
	}
	o := lcw.NewOpts[response]()
	s.cache, err = lcw.NewExpirableCache(o.TTL(ttl), o.MaxKeys(1000), o.MaxValSize(1024*1024), o.MaxCacheSize(10*1024*1024))
	return err
}

func (s *Server) router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP, rest.Recoverer(log.Default()))
	router.Use(middleware.Throttle(1000), middleware.Timeout(60*time.Second))
	router.Use(rest.AppInfo("daterange", "umputun", s.Version), rest.Ping)
	router.Use(tollbooth_chi.LimitHandler(tollbooth.NewLimiter(10, nil)))

	router.Group(func(r chi.Router) {
		l := logger.New(logger.Log(log.Default()), logger.Prefix("[INFO]"))
		r.Use(l.Handler)
		r.Get("/range", s.getRangeCtrl)
		r.Get("/presets", s.getPresetsCtrl)
		r.Get("/preset/{name}", s.getPresetCtrl)
	})

	router.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		metrics.WritePrometheus(w, false)
	})

	return router
}

// GET /range?start=2011-01-01&end=2011-02-01&days=10&step=1&inclusive=1&format=%25Y&limit=100&text=1
func (s *Server) getRangeCtrl(w http.ResponseWriter, r *http.Request) {
	countRequest("/range")
	spec, err := specFromQuery(r.URL.Query())
	if err != nil {
		s.sendError(w, r, err, "failed to parse range")
		return
	}
	prn := printer.Printer{Format: r.URL.Query().Get("format"), Template: r.URL.Query().Get("template")}
	s.sendRange(w, r, "range:"+r.URL.RawQuery, spec, prn)
}

// GET /presets - returns list of preset names
func (s *Server) getPresetsCtrl(w http.ResponseWriter, r *http.Request) {
	countRequest("/presets")
	type presetInfo struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	res := []presetInfo{}
	for _, name := range s.Conf.Names() {
		res = append(res, presetInfo{Name: name, Description: s.Conf.Presets[name].Description})
	}
	render.JSON(w, r, res)
}

// GET /preset/{name}?limit=100&text=1 - returns dates of the named preset
func (s *Server) getPresetCtrl(w http.ResponseWriter, r *http.Request) {
	countRequest("/preset")
	name := chi.URLParam(r, "name")
	preset, found := s.Conf.Presets[name]
	if !found {
		errorsCounter.Inc()
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, fmt.Errorf("preset %s not found", name), "failed to get preset")
		return
	}
	spec, err := preset.Spec()
	if err != nil {
		errorsCounter.Inc()
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to make preset range")
		return
	}
	prn := printer.Printer{Format: preset.Format, Template: preset.Template}
	s.sendRange(w, r, "preset:"+name+":"+r.URL.RawQuery, spec, prn)
}

func (s *Server) sendRange(w http.ResponseWriter, r *http.Request, key string, spec daterange.Spec, prn printer.Printer) {
	limit, err := s.limit(r.URL.Query().Get("limit"))
	if err != nil {
		s.sendError(w, r, err, "failed to parse limit")
		return
	}

	asText := wantText(r)
	if asText {
		key += ":text"
	}

	data, err := s.cache.Get(key, func() (response, error) {
		dates, truncated := daterange.Take(spec, limit)
		datesCounter.Add(len(dates))
		lines, e := prn.Lines(dates)
		if e != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, e)
		}
		resp := RangeResponse{Count: len(dates), Truncated: truncated, Dates: lines}
		if asText {
			if len(resp.Dates) == 0 {
				return response{}, nil
			}
			return response(strings.Join(resp.Dates, "\n") + "\n"), nil
		}
		body, e := json.Marshal(resp)
		return response(body), e
	})
	if err != nil {
		s.sendError(w, r, err, "failed to make range")
		return
	}

	if asText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	if _, err := w.Write(data); err != nil {
		log.Printf("[WARN] failed to send range, %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error, details string) {
	errorsCounter.Inc()
	code := http.StatusInternalServerError
	var perr *daterange.ParseError
	if errors.Is(err, errBadRequest) || errors.As(err, &perr) {
		code = http.StatusBadRequest
	}
	rest.SendErrorJSON(w, r, log.Default(), code, err, details)
}

// limit returns the response size limit, request can lower the server limit but not raise it
func (s *Server) limit(param string) (int, error) {
	res := s.Limit
	if res <= 0 {
		res = defaultLimit
	}
	if param == "" {
		return res, nil
	}
	v, err := strconv.Atoi(param)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", errBadRequest, param)
	}
	if v < res {
		res = v
	}
	return res, nil
}

func wantText(r *http.Request) bool {
	if t := r.URL.Query().Get("text"); t != "" {
		v, err := strconv.ParseBool(t)
		return err == nil && v
	}
	return strings.HasPrefix(r.Header.Get("Accept"), "text/plain")
}

func specFromQuery(q url.Values) (spec daterange.Spec, err error) {
	if spec.Start, err = daterange.Parse(q.Get("start")); err != nil {
		return spec, err
	}
	if end := q.Get("end"); end != "" {
		if spec.End, err = daterange.Parse(end); err != nil {
			return spec, err
		}
	}

	intParam := func(name string, def int) (int, error) {
		v := q.Get(name)
		if v == "" {
			return def, nil
		}
		res, e := strconv.Atoi(v)
		if e != nil {
			return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, v)
		}
		return res, nil
	}
	if spec.Step, err = intParam("step", 1); err != nil {
		return spec, err
	}
	if spec.MaxCount, err = intParam("days", 0); err != nil {
		return spec, err
	}
	if v := q.Get("inclusive"); v != "" {
		if spec.Inclusive, err = strconv.ParseBool(v); err != nil {
			return spec, fmt.Errorf("%w: invalid inclusive %q", errBadRequest, v)
		}
	}
	return spec, nil
}
