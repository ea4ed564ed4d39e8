package repositories

// Repos bundles every repository one request handler may touch.
type Repos struct {
	Users         UserRepository
	Families      FamilyRepository
	Invites       InviteRepository
	LeaveRequests LeaveRequestRepository
}

// TxRunner executes fn against transaction-scoped repositories. Membership
// and schedule mutations that touch several records must commit as one unit,
// so services run every write path through InTx; the store's transaction is
// the only concurrency guard.
type TxRunner interface {
	InTx(fn func(r Repos) error) error
}
