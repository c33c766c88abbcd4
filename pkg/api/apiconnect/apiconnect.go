// Package apiconnect contains Connect handlers and clients for the rowflow.v1
// services.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rowflow/pkg/api"
)

const (
	// AuthServiceName is the fully-qualified name of the AuthService service.
	AuthServiceName = "rowflow.v1.AuthService"
	// TrainingServiceName is the fully-qualified name of the TrainingService service.
	TrainingServiceName = "rowflow.v1.TrainingService"
)

// Fully-qualified procedure names, usable as HTTP paths.
const (
	AuthServiceRegisterProcedure = "/rowflow.v1.AuthService/Register"
	AuthServiceLoginProcedure    = "/rowflow.v1.AuthService/Login"

	TrainingServiceLogEntryProcedure         = "/rowflow.v1.TrainingService/LogEntry"
	TrainingServiceListEntriesProcedure      = "/rowflow.v1.TrainingService/ListEntries"
	TrainingServiceGetYearlyTableProcedure   = "/rowflow.v1.TrainingService/GetYearlyTable"
	TrainingServiceGetMonthlyTotalsProcedure = "/rowflow.v1.TrainingService/GetMonthlyTotals"
	TrainingServiceArchiveLogProcedure       = "/rowflow.v1.TrainingService/ArchiveLog"
)

// AuthServiceHandler is implemented by the server side of AuthService.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
}

// TrainingServiceHandler is implemented by the server side of TrainingService.
type TrainingServiceHandler interface {
	LogEntry(context.Context, *connect.Request[api.LogEntryRequest]) (*connect.Response[api.LogEntryResponse], error)
	ListEntries(context.Context, *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error)
	GetYearlyTable(context.Context, *connect.Request[api.GetYearlyTableRequest]) (*connect.Response[api.GetYearlyTableResponse], error)
	GetMonthlyTotals(context.Context, *connect.Request[api.GetMonthlyTotalsRequest]) (*connect.Response[api.GetMonthlyTotalsResponse], error)
	ArchiveLog(context.Context, *connect.Request[api.ArchiveLogRequest]) (*connect.Response[api.ArchiveLogResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler from svc. It returns the path
// on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSONHandler(opts)
	register := connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...)
	login := connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...)

	return "/" + AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AuthServiceRegisterProcedure:
			register.ServeHTTP(w, r)
		case AuthServiceLoginProcedure:
			login.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// NewTrainingServiceHandler builds an HTTP handler from svc. It returns the
// path on which to mount the handler and the handler itself.
func NewTrainingServiceHandler(svc TrainingServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSONHandler(opts)
	logEntry := connect.NewUnaryHandler(TrainingServiceLogEntryProcedure, svc.LogEntry, opts...)
	listEntries := connect.NewUnaryHandler(TrainingServiceListEntriesProcedure, svc.ListEntries, opts...)
	yearlyTable := connect.NewUnaryHandler(TrainingServiceGetYearlyTableProcedure, svc.GetYearlyTable, opts...)
	monthlyTotals := connect.NewUnaryHandler(TrainingServiceGetMonthlyTotalsProcedure, svc.GetMonthlyTotals, opts...)
	archiveLog := connect.NewUnaryHandler(TrainingServiceArchiveLogProcedure, svc.ArchiveLog, opts...)

	return "/" + TrainingServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case TrainingServiceLogEntryProcedure:
			logEntry.ServeHTTP(w, r)
		case TrainingServiceListEntriesProcedure:
			listEntries.ServeHTTP(w, r)
		case TrainingServiceGetYearlyTableProcedure:
			yearlyTable.ServeHTTP(w, r)
		case TrainingServiceGetMonthlyTotalsProcedure:
			monthlyTotals.ServeHTTP(w, r)
		case TrainingServiceArchiveLogProcedure:
			archiveLog.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// AuthServiceClient is a client for rowflow.v1.AuthService.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
}

type authServiceClient struct {
	register *connect.Client[api.RegisterRequest, api.RegisterResponse]
	login    *connect.Client[api.LoginRequest, api.LoginResponse]
}

// NewAuthServiceClient constructs a client for rowflow.v1.AuthService.
// baseURL is the server's scheme and host, e.g. http://localhost:8080.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSONClient(opts)
	return &authServiceClient{
		register: connect.NewClient[api.RegisterRequest, api.RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:    connect.NewClient[api.LoginRequest, api.LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
	}
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

// TrainingServiceClient is a client for rowflow.v1.TrainingService.
type TrainingServiceClient interface {
	LogEntry(context.Context, *connect.Request[api.LogEntryRequest]) (*connect.Response[api.LogEntryResponse], error)
	ListEntries(context.Context, *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error)
	GetYearlyTable(context.Context, *connect.Request[api.GetYearlyTableRequest]) (*connect.Response[api.GetYearlyTableResponse], error)
	GetMonthlyTotals(context.Context, *connect.Request[api.GetMonthlyTotalsRequest]) (*connect.Response[api.GetMonthlyTotalsResponse], error)
	ArchiveLog(context.Context, *connect.Request[api.ArchiveLogRequest]) (*connect.Response[api.ArchiveLogResponse], error)
}

type trainingServiceClient struct {
	logEntry         *connect.Client[api.LogEntryRequest, api.LogEntryResponse]
	listEntries      *connect.Client[api.ListEntriesRequest, api.ListEntriesResponse]
	getYearlyTable   *connect.Client[api.GetYearlyTableRequest, api.GetYearlyTableResponse]
	getMonthlyTotals *connect.Client[api.GetMonthlyTotalsRequest, api.GetMonthlyTotalsResponse]
	archiveLog       *connect.Client[api.ArchiveLogRequest, api.ArchiveLogResponse]
}

// NewTrainingServiceClient constructs a client for rowflow.v1.TrainingService.
func NewTrainingServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) TrainingServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSONClient(opts)
	return &trainingServiceClient{
		logEntry:         connect.NewClient[api.LogEntryRequest, api.LogEntryResponse](httpClient, baseURL+TrainingServiceLogEntryProcedure, opts...),
		listEntries:      connect.NewClient[api.ListEntriesRequest, api.ListEntriesResponse](httpClient, baseURL+TrainingServiceListEntriesProcedure, opts...),
		getYearlyTable:   connect.NewClient[api.GetYearlyTableRequest, api.GetYearlyTableResponse](httpClient, baseURL+TrainingServiceGetYearlyTableProcedure, opts...),
		getMonthlyTotals: connect.NewClient[api.GetMonthlyTotalsRequest, api.GetMonthlyTotalsResponse](httpClient, baseURL+TrainingServiceGetMonthlyTotalsProcedure, opts...),
		archiveLog:       connect.NewClient[api.ArchiveLogRequest, api.ArchiveLogResponse](httpClient, baseURL+TrainingServiceArchiveLogProcedure, opts...),
	}
}

func (c *trainingServiceClient) LogEntry(ctx context.Context, req *connect.Request[api.LogEntryRequest]) (*connect.Response[api.LogEntryResponse], error) {
	return c.logEntry.CallUnary(ctx, req)
}

func (c *trainingServiceClient) ListEntries(ctx context.Context, req *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error) {
	return c.listEntries.CallUnary(ctx, req)
}

func (c *trainingServiceClient) GetYearlyTable(ctx context.Context, req *connect.Request[api.GetYearlyTableRequest]) (*connect.Response[api.GetYearlyTableResponse], error) {
	return c.getYearlyTable.CallUnary(ctx, req)
}

func (c *trainingServiceClient) GetMonthlyTotals(ctx context.Context, req *connect.Request[api.GetMonthlyTotalsRequest]) (*connect.Response[api.GetMonthlyTotalsResponse], error) {
	return c.getMonthlyTotals.CallUnary(ctx, req)
}

func (c *trainingServiceClient) ArchiveLog(ctx context.Context, req *connect.Request[api.ArchiveLogRequest]) (*connect.Response[api.ArchiveLogResponse], error) {
	return c.archiveLog.CallUnary(ctx, req)
}

func withJSONHandler(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func withJSONClient(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}
