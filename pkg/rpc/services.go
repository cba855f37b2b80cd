package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AuthServiceName       = "splitledger.v1.AuthService"
	GroupServiceName      = "splitledger.v1.GroupService"
	ExpenseServiceName    = "splitledger.v1.ExpenseService"
	SettlementServiceName = "splitledger.v1.SettlementService"
)

// Procedure paths, as seen by interceptors in req.Spec().Procedure.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"

	GroupServiceCreateGroupProcedure = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure    = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure  = "/" + GroupServiceName + "/ListGroups"
	GroupServiceAddMemberProcedure   = "/" + GroupServiceName + "/AddMember"

	ExpenseServiceCreateExpenseProcedure    = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceListExpensesProcedure     = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceListUserExpensesProcedure = "/" + ExpenseServiceName + "/ListUserExpenses"
	ExpenseServiceDeleteExpenseProcedure    = "/" + ExpenseServiceName + "/DeleteExpense"

	SettlementServiceCalculateSettlementsProcedure = "/" + SettlementServiceName + "/CalculateSettlements"
	SettlementServiceListUserSettlementsProcedure  = "/" + SettlementServiceName + "/ListUserSettlements"
	SettlementServiceGetSettlementProcedure        = "/" + SettlementServiceName + "/GetSettlement"
	SettlementServiceMarkSettlementPaidProcedure   = "/" + SettlementServiceName + "/MarkSettlementPaid"
)

// PublicProcedures need no bearer token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// ─── AuthService ────────────────────────────────────────────────────────────

type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
}

func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, AuthServiceRegisterProcedure, svc.Register, opts)
	handle(mux, AuthServiceLoginProcedure, svc.Login, opts)
	handle(mux, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts)
	return "/" + AuthServiceName + "/", mux
}

type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       connect.NewClient[RegisterRequest, AuthResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// ─── GroupService ───────────────────────────────────────────────────────────

type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[GroupResponse], error)
}

func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	handle(mux, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	handle(mux, GroupServiceListGroupsProcedure, svc.ListGroups, opts)
	handle(mux, GroupServiceAddMemberProcedure, svc.AddMember, opts)
	return "/" + GroupServiceName + "/", mux
}

type GroupServiceClient struct {
	createGroup *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup    *connect.Client[GetGroupRequest, GroupResponse]
	listGroups  *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMember   *connect.Client[AddMemberRequest, GroupResponse]
}

func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:    connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:  connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMember:   connect.NewClient[AddMemberRequest, GroupResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[GroupResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

// ─── ExpenseService ─────────────────────────────────────────────────────────

type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	ListUserExpenses(context.Context, *connect.Request[ListUserExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
}

func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts)
	handle(mux, ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts)
	handle(mux, ExpenseServiceListUserExpensesProcedure, svc.ListUserExpenses, opts)
	handle(mux, ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts)
	return "/" + ExpenseServiceName + "/", mux
}

type ExpenseServiceClient struct {
	createExpense    *connect.Client[CreateExpenseRequest, ExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	listUserExpenses *connect.Client[ListUserExpensesRequest, ListExpensesResponse]
	deleteExpense    *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
}

func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createExpense:    connect.NewClient[CreateExpenseRequest, ExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		listExpenses:     connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		listUserExpenses: connect.NewClient[ListUserExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListUserExpensesProcedure, opts...),
		deleteExpense:    connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListUserExpenses(ctx context.Context, req *connect.Request[ListUserExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listUserExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

// ─── SettlementService ──────────────────────────────────────────────────────

type SettlementServiceHandler interface {
	CalculateSettlements(context.Context, *connect.Request[CalculateSettlementsRequest]) (*connect.Response[SettlementsResponse], error)
	ListUserSettlements(context.Context, *connect.Request[ListUserSettlementsRequest]) (*connect.Response[SettlementsResponse], error)
	GetSettlement(context.Context, *connect.Request[GetSettlementRequest]) (*connect.Response[SettlementResponse], error)
	MarkSettlementPaid(context.Context, *connect.Request[MarkSettlementPaidRequest]) (*connect.Response[SettlementResponse], error)
}

func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, SettlementServiceCalculateSettlementsProcedure, svc.CalculateSettlements, opts)
	handle(mux, SettlementServiceListUserSettlementsProcedure, svc.ListUserSettlements, opts)
	handle(mux, SettlementServiceGetSettlementProcedure, svc.GetSettlement, opts)
	handle(mux, SettlementServiceMarkSettlementPaidProcedure, svc.MarkSettlementPaid, opts)
	return "/" + SettlementServiceName + "/", mux
}

type SettlementServiceClient struct {
	calculateSettlements *connect.Client[CalculateSettlementsRequest, SettlementsResponse]
	listUserSettlements  *connect.Client[ListUserSettlementsRequest, SettlementsResponse]
	getSettlement        *connect.Client[GetSettlementRequest, SettlementResponse]
	markSettlementPaid   *connect.Client[MarkSettlementPaidRequest, SettlementResponse]
}

func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &SettlementServiceClient{
		calculateSettlements: connect.NewClient[CalculateSettlementsRequest, SettlementsResponse](httpClient, baseURL+SettlementServiceCalculateSettlementsProcedure, opts...),
		listUserSettlements:  connect.NewClient[ListUserSettlementsRequest, SettlementsResponse](httpClient, baseURL+SettlementServiceListUserSettlementsProcedure, opts...),
		getSettlement:        connect.NewClient[GetSettlementRequest, SettlementResponse](httpClient, baseURL+SettlementServiceGetSettlementProcedure, opts...),
		markSettlementPaid:   connect.NewClient[MarkSettlementPaidRequest, SettlementResponse](httpClient, baseURL+SettlementServiceMarkSettlementPaidProcedure, opts...),
	}
}

func (c *SettlementServiceClient) CalculateSettlements(ctx context.Context, req *connect.Request[CalculateSettlementsRequest]) (*connect.Response[SettlementsResponse], error) {
	return c.calculateSettlements.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ListUserSettlements(ctx context.Context, req *connect.Request[ListUserSettlementsRequest]) (*connect.Response[SettlementsResponse], error) {
	return c.listUserSettlements.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[SettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) MarkSettlementPaid(ctx context.Context, req *connect.Request[MarkSettlementPaidRequest]) (*connect.Response[SettlementResponse], error) {
	return c.markSettlementPaid.CallUnary(ctx, req)
}
