package persistence

// Persistence bundles the stores an engine needs so it can
// depend on a single abstraction.
type Persistence struct {
	WorkOrders WorkOrderStore
	Events     EventStore
}
