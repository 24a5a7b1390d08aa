package event_bus

const (
	BudgetCreatedEvent   EventType = "budget.created"
	BudgetChangedEvent   EventType = "budget.changed"
	BudgetApprovedEvent  EventType = "budget.approved"
	BudgetDeletedEvent   EventType = "budget.deleted"
	BudgetRefreshedEvent EventType = "budget.refreshed"
)

type BudgetCreated struct {
	Id         int
	Number     string
	ContractId int
	ItemCount  int
	NetTotal   string
}

// BudgetChanged is published after a mutation of a Draft budget is committed.
type BudgetChanged struct {
	Id           int
	Operation    string
	Version      string
	AuditRecords []string
}

type BudgetApproved struct {
	Id       int
	Number   string
	NetTotal string
}

type BudgetDeleted struct {
	Id     int
	Number string
}

type BudgetRefreshed struct {
	Id        int
	Persisted bool
}
