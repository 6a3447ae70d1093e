package router

import (
	"net/http"

	"fota-manager/backend/app/controllers"
	"fota-manager/backend/app/metrics"
	"fota-manager/backend/app/middleware"
)

type Controllers struct {
	HTTP    *controllers.HTTPController
	Auth    *controllers.AuthController
	Admin   *controllers.AdminController
	Targets *controllers.TargetController
	Devices *controllers.DeviceController
	Push    *controllers.PushController
}

func NewRouter(c Controllers, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()
	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRoute(pattern, h))
	}
	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRoute(pattern, mw.RequireAuth(h)))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRoute(pattern, mw.RequireAdmin(h)))
	}

	// public
	public("GET /ping", c.HTTP.Ping)
	public("POST /login", c.Auth.Login)
	mux.Handle("GET /metrics", middleware.WithRoute("GET /metrics", metrics.Handler()))

	// session
	authed("POST /logout", c.Auth.Logout)
	authed("GET /session/logs", c.Auth.Logs)

	// inventory
	authed("GET /targets", c.Targets.List)
	authed("POST /targets", c.Targets.Create)
	authed("GET /targets/versions", c.Targets.Versions)
	authed("POST /targets/versions", c.Targets.AddVersion)
	authed("GET /targets/binary", c.Targets.Binary)

	// devices
	authed("GET /devices", c.Devices.List)
	authed("POST /devices", c.Devices.Add)

	// push
	authed("POST /push", c.Push.Start)
	authed("GET /push", c.Push.Get)
	authed("GET /push/jobs", c.Push.Jobs)
	authed("GET /push/history", c.Push.History)

	// admin-only endpoints
	admin("GET /admin/users", c.Admin.ListUsers)
	admin("POST /admin/users", c.Admin.CreateUser)

	return mux
}
