package plan

// EdgeState is the lifecycle state of a DataflowEdge, per §3.
type EdgeState int

const (
	EdgeNull EdgeState = iota
	EdgeIncomplete
	EdgeConnected
)

// Data describes what an edge carries: a record type and its cardinality.
type Data struct {
	Record RecordKey
	Stream bool
}

// DataflowEdge connects two Operators. It starts Null, becomes Incomplete
// once its producer is known, and becomes Connected once both ends are
// fixed. Plan.Validate rejects a plan containing any non-Connected edge.
type DataflowEdge struct {
	State EdgeState
	From  OperatorKey
	To    OperatorKey
	Data  Data
}

// Connect fixes the consumer end of an Incomplete edge.
func (e *DataflowEdge) Connect(to OperatorKey) {
	e.To = to
	e.State = EdgeConnected
}
