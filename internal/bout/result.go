package bout

// Result methods. Automatic outcomes use MethodIppon and
// MethodDisqualification; everything the operator calls in explicitly
// (time expiry included) is a decision unless stated otherwise.
const (
	MethodIppon            = "ippon"
	MethodDisqualification = "disqualification"
	MethodDecision         = "decision"
	MethodWithdrawal       = "withdrawal"
)

var knownMethods = map[string]bool{
	MethodIppon:            true,
	MethodDisqualification: true,
	MethodDecision:         true,
	MethodWithdrawal:       true,
}

func ValidMethod(m string) bool {
	return knownMethods[m]
}
