package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/idilsaglam/tada/internal/model"
)

// Header carries the connection string on every request.
const Header = "X-MongoDB-URI"

// Options wires the handler's ambient dependencies. Both fields may be nil.
type Options struct {
	Logger     *log.Logger
	Registerer prometheus.Registerer
}

type api struct {
	state    *State
	log      *log.Logger
	requests *prometheus.CounterVec
	router   *mux.Router
}

type errorBody struct {
	Error string `json:"error"`
}

type createBody struct {
	Text string `json:"text"`
}

// NewHandler returns the mock REST surface over state:
//
//	GET    /api/todos
//	POST   /api/todos          {"text": ...}
//	GET    /api/todos/{id}
//	PUT    /api/todos/{id}     {"text"?: ..., "completed"?: ...}
//	DELETE /api/todos/{id}
//
// Every request, matched or not, must carry the Header.
func NewHandler(state *State, opts Options) http.Handler {
	a := &api{state: state, log: opts.Logger, requests: requestCounter(opts.Registerer)}

	r := mux.NewRouter()
	r.SkipClean(true)
	r.HandleFunc("/api/todos", a.listTodos).Methods(http.MethodGet)
	r.HandleFunc("/api/todos", a.createTodo).Methods(http.MethodPost)
	r.HandleFunc("/api/todos/{id:.+}", a.getTodo).Methods(http.MethodGet)
	r.HandleFunc("/api/todos/{id:.+}", a.updateTodo).Methods(http.MethodPut)
	r.HandleFunc("/api/todos/{id:.+}", a.deleteTodo).Methods(http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	a.router = r

	return a
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	reqID := uuid.NewString()
	rw.Header().Set("X-Request-ID", reqID)

	if r.Header.Get(Header) == "" {
		writeJSON(rw, http.StatusBadRequest, errorBody{Error: "MongoDB URI is required"})
	} else {
		a.router.ServeHTTP(rw, r)
	}

	route := a.routeOf(r)
	a.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
	if a.log != nil {
		a.log.Debug("mock api", "method", r.Method, "path", r.URL.Path, "route", route, "status", rw.status, "request_id", reqID)
	}
}

func (a *api) routeOf(r *http.Request) string {
	var m mux.RouteMatch
	if a.router.Match(r, &m) && m.Route != nil && m.MatchErr == nil {
		if tpl, err := m.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func (a *api) listTodos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state.Snapshot())
}

func (a *api) createTodo(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	writeJSON(w, http.StatusCreated, a.state.create(body.Text))
}

func (a *api) getTodo(w http.ResponseWriter, r *http.Request) {
	td, ok := a.state.get(mux.Vars(r)["id"])
	if !ok {
		todoNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func (a *api) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := a.state.get(id); !ok {
		todoNotFound(w)
		return
	}
	var p model.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	td, ok := a.state.update(id, p)
	if !ok {
		todoNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func (a *api) deleteTodo(w http.ResponseWriter, r *http.Request) {
	td, ok := a.state.remove(mux.Vars(r)["id"])
	if !ok {
		todoNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func todoNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Todo not found"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusWriter remembers the status code for metrics and logs.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tada_mockapi_requests_total",
			Help: "Requests served by the mock todo API",
		},
		[]string{"method", "route", "code"},
	)
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}
