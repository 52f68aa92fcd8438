// Package httpconn implements the HTTP server connector driver: bind to
// an address, accept only POST requests on a configured allow-list of
// routes (or any route if the list is empty), accumulate the body, and
// invoke the RX callback — responding 200 once the callback has run, 404
// for a disallowed route, 405 for non-POST methods, 500 when the body
// cannot be read or no callback is registered. RXCallback returns no
// result, so a transform or send failure in the bridge behind the
// callback does not change the 200 response.
// Grounded on the route allow-list and POST-accumulate-then-dispatch
// logic of original_source's conn_http_server.c, routed through
// github.com/go-chi/chi/v5 the way gray-logic-core's internal/api does.
package httpconn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
)

func init() {
	connector.Register(connector.Entry{
		Type:  "http_server",
		Kind:  message.KindHTTPServer,
		Parse: parseConfig,
		Open:  open,
	})
}

// Config is the parsed params subtree for an "http_server" connector.
type Config struct {
	Bind   string
	Routes []string // empty means every route is allowed
}

func parseConfig(raw map[string]any) (any, error) {
	cfg := Config{Bind: "0.0.0.0:8080"}
	if v, ok := raw["bind"].(string); ok && v != "" {
		cfg.Bind = v
	}
	if routes, ok := raw["routes"].([]any); ok {
		for _, r := range routes {
			if s, ok := r.(string); ok {
				cfg.Routes = append(cfg.Routes, s)
			}
		}
	}
	return cfg, nil
}

// Runtime is the live HTTP server connector.
type Runtime struct {
	name   string
	cfg    Config
	rx     connector.RXCallback
	server *http.Server
}

func open(name string, rawCfg any) (connector.Runtime, error) {
	cfg, ok := rawCfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: httpconn.open: unexpected config type %T", connector.ErrDeviceConfig, rawCfg)
	}
	return &Runtime{name: name, cfg: cfg}, nil
}

func (r *Runtime) Kind() message.Kind { return message.KindHTTPServer }
func (r *Runtime) Name() string       { return r.name }

func (r *Runtime) SetRXCallback(cb connector.RXCallback) { r.rx = cb }

func (r *Runtime) allowRoute(path string) bool {
	if len(r.cfg.Routes) == 0 {
		return true
	}
	for _, allowed := range r.cfg.Routes {
		if allowed == path {
			return true
		}
	}
	return false
}

func (r *Runtime) handler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if !r.allowRoute(req.URL.Path) {
		http.Error(w, "route not allowed", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}

	if r.rx == nil {
		http.Error(w, "no handler registered", http.StatusInternalServerError)
		return
	}

	r.rx(message.Message{
		Kind:    message.KindHTTPServer,
		Payload: message.Payload{Data: body, IsText: true},
		Params:  message.HTTPParams{Path: req.URL.Path, Method: req.Method},
		TraceID: message.NewTraceID(),
	})

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) Start(ctx context.Context) error {
	router := chi.NewRouter()
	router.Post("/*", r.handler)

	r.server = &http.Server{
		Addr:    r.cfg.Bind,
		Handler: router,
	}

	ln, err := newListener(r.cfg.Bind)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", connector.ErrConnect, r.name, err)
	}

	go func() {
		if err := r.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("http_server %q: serve error: %v", r.name, err)
		}
	}()

	logger.Info("http_server %q: listening on %s", r.name, r.cfg.Bind)
	return nil
}

// Send is not meaningful for an HTTP server source — it only ever acts
// as the "from" endpoint of a bridge.
func (r *Runtime) Send(ctx context.Context, msg message.Message) error {
	return fmt.Errorf("%w: httpconn: http_server connectors do not support Send", connector.ErrKindMismatch)
}

func (r *Runtime) Poll(ctx context.Context) error { return nil }

func (r *Runtime) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.server.Shutdown(shutdownCtx)
}

func (r *Runtime) Close() error { return nil }
