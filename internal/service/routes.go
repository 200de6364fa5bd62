package service

import (
	"net/http"

	"gateway/internal/interpreter"
)

// Route is one intercepted endpoint. Path is relative to both the gateway's API prefix
// and the backend's api/ root.
type Route struct {
	Kind   interpreter.RouteKind
	Method string
	Path   string
}

// BackendPath is the path forwarded to the backend base URL.
func (r Route) BackendPath() string { return "api/" + r.Path }

// InterceptedRoutes lists every route the orchestrator handles. All other traffic
// goes through the transparent forwarder.
var InterceptedRoutes = []Route{
	{Kind: interpreter.RouteLogin, Method: http.MethodPost, Path: interpreter.RouteLogin.String()},
	{Kind: interpreter.RouteSendOtp, Method: http.MethodPost, Path: interpreter.RouteSendOtp.String()},
	{Kind: interpreter.RouteForgotPasswordSendOtp, Method: http.MethodPost, Path: interpreter.RouteForgotPasswordSendOtp.String()},
	{Kind: interpreter.RouteForgotPasswordVerifyOtp, Method: http.MethodPost, Path: interpreter.RouteForgotPasswordVerifyOtp.String()},
	{Kind: interpreter.RouteResendOtp, Method: http.MethodPost, Path: interpreter.RouteResendOtp.String()},
	{Kind: interpreter.RouteUploadFile, Method: http.MethodPost, Path: interpreter.RouteUploadFile.String()},
	{Kind: interpreter.RouteDeleteFile, Method: http.MethodPost, Path: interpreter.RouteDeleteFile.String()},
	{Kind: interpreter.RouteDownloadFile, Method: http.MethodGet, Path: interpreter.RouteDownloadFile.String()},
}

func routeFor(kind interpreter.RouteKind) (Route, bool) {
	for _, r := range InterceptedRoutes {
		if r.Kind == kind {
			return r, true
		}
	}
	return Route{}, false
}
