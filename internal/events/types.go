package events

// Event identifies a bus topic.
type Event string

const (
	EventOrderSubmitted Event = "order.submitted"
	EventOrderRejected  Event = "order.rejected"
	EventOrderFill      Event = "order.fill"
	EventAccountUpdate  Event = "account.update"
	EventCircuitBreak   Event = "risk.circuit_break"
)

// Fill is the payload published for EventOrderFill.
type Fill struct {
	OrderID  int64
	Strategy string
	Symbol   string
	Side     string
	Delta    float64
	Filled   float64
	Status   string
}
