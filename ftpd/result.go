package ftpd

// Result is the tagged outcome every blocking per-session operation
// returns, replacing the source's overloaded 0/-1 and 1/0 sentinels with an
// explicit three-way outcome (§9, "Tagged variants over the source's
// int-returning helpers"). Ok continues the session loop; Timeout and Error
// both end it.
type Result int

const (
	ResultOk Result = iota
	ResultTimeout
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultTimeout:
		return "timeout"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}
