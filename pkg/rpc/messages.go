package rpc

// Amounts are decimal strings with two fractional digits, e.g. "10.00".

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
}

type GroupMember struct {
	UserID   string `json:"user_id"`
	JoinedAt int64  `json:"joined_at"`
}

type Group struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedBy string        `json:"created_by"`
	Members   []GroupMember `json:"members"`
	CreatedAt int64         `json:"created_at"`
}

type Share struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type Expense struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	Title     string  `json:"title"`
	Amount    string  `json:"amount"`
	PaidBy    string  `json:"paid_by"`
	Shares    []Share `json:"shares"`
	CreatedAt int64   `json:"created_at"`
}

// Settlement says FromUser owes ToUser Amount within a group.
type Settlement struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	FromUser  *User  `json:"from_user"`
	ToUser    *User  `json:"to_user"`
	Amount    string `json:"amount"`
	Paid      bool   `json:"paid"`
	CreatedAt int64  `json:"created_at"`
}

// ─── AuthService ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// ─── GroupService ───────────────────────────────────────────────────────────

type CreateGroupRequest struct {
	Name string `json:"name"`
	// MemberIDs are added alongside the caller, who always joins.
	MemberIDs []string `json:"member_ids"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type ListGroupsRequest struct{}

type AddMemberRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// ─── ExpenseService ─────────────────────────────────────────────────────────

// CreateExpenseRequest splits Amount equally among ParticipantIDs unless
// Shares are given, in which case they must add up to Amount.
type CreateExpenseRequest struct {
	GroupID        string   `json:"group_id"`
	Title          string   `json:"title"`
	Amount         string   `json:"amount"`
	PaidBy         string   `json:"paid_by"`
	ParticipantIDs []string `json:"participant_ids"`
	Shares         []Share  `json:"shares"`
}

type ExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListUserExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

// ─── SettlementService ──────────────────────────────────────────────────────

type CalculateSettlementsRequest struct {
	GroupID string `json:"group_id"`
}

type ListUserSettlementsRequest struct{}

type SettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

type GetSettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type MarkSettlementPaidRequest struct {
	SettlementID string `json:"settlement_id"`
}

type SettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}
