package types

// Reachability is the helper server availability as last observed by a probe.
type Reachability string

const (
	ReachabilityUnknown     Reachability = "unknown"
	ReachabilityReachable   Reachability = "reachable"
	ReachabilityUnreachable Reachability = "unreachable"
)

func (r Reachability) String() string { return string(r) }
