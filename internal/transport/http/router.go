package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/config"
	"poker-club/internal/session"
	"poker-club/internal/store"
	"poker-club/internal/ws"
)

// Deps are the collaborators the router serves. Store may be nil.
type Deps struct {
	Tables *session.Manager
	Hub    *broadcast.Hub
	WS     *ws.Server
	Bank   Bank
	Store  *store.Store
	Config config.ServerConfig
}

func NewRouter(d Deps) *chi.Mux {
	tables := NewTableHandlers(d.Tables, d.Bank)
	commands := NewCommandHandlers(tables)
	admin := NewAdminHandlers(d.Tables, d.Hub, d.Bank, d.Store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(RequestLogMiddleware()).Get("/healthz", admin.Health())
	if d.WS != nil {
		r.Get("/ws/tables/{table_id}", d.WS.HandleWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequestLogMiddleware())
		r.Get("/tables", tables.List())
		r.Get("/players/{player_id}/balance", tables.Balance())

		r.Route("/tables/{table_id}", func(r chi.Router) {
			r.With(SeatAuthMiddleware(d.Tables, false)).Get("/state", tables.State())
			r.Get("/hands", tables.Hands())
			r.With(SeatAuthMiddleware(d.Tables, false)).Get("/events", tables.Events(d.Hub))

			r.Group(func(r chi.Router) {
				r.Use(CommandAuditMiddleware(2048))
				r.Post("/join", commands.Join())
				r.Post("/bomb-pot", commands.TriggerBombPot())
			})
			r.Group(func(r chi.Router) {
				r.Use(SeatAuthMiddleware(d.Tables, true))
				r.Use(CommandAuditMiddleware(2048))
				r.Post("/leave", commands.Leave())
				r.Post("/actions", commands.Act())
				r.Post("/time-bank", commands.UseTimeBank())
				r.Post("/straddle", commands.PostStraddle())
				r.Post("/rabbit-hunt", commands.RabbitHunt())
				r.Post("/reconnect", commands.Reconnect())
				r.Post("/cancel-reconnect", commands.CancelReconnect())
				r.Post("/rejoin", commands.Rejoin())
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Post("/tables", admin.CreateTable())
			r.Delete("/tables/{table_id}", admin.CloseTable())
			r.Get("/tables", admin.TableRecords())
			r.Get("/hands/{hand_id}", admin.Hand())
			r.Get("/accounts", admin.Accounts())
			r.Get("/ledger", admin.Ledger())
			r.Post("/topup", admin.Topup())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
