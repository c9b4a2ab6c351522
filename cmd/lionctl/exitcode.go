package main

import "lion.run/lion/errkind"

// Exit codes per §6: 0 success, 1 generic error, 2 not found, 3 permission/
// capability denied, 4 invalid input, 5 timeout, 6 resource exceeded.
const (
	exitOK               = 0
	exitGeneric          = 1
	exitNotFound         = 2
	exitPermissionDenied = 3
	exitInvalidInput     = 4
	exitTimeout          = 5
	exitResourceExceeded = 6
)

// exitCodeFor maps a kernel error's Kind onto §6's exit code vocabulary.
// There is no Kind-to-exit-code bijection — "not found" is a usage
// condition most subcommands express as KindInput with a "not found"
// distinguishing message, not a separate Kind — so callers that need
// exit 2 return exitNotFound themselves.
func exitCodeFor(err *errkind.Error) int {
	if err == nil {
		return exitOK
	}
	switch err.Kind {
	case errkind.KindInput:
		return exitInvalidInput
	case errkind.KindCapabilityDenied, errkind.KindPolicyDenied:
		return exitPermissionDenied
	case errkind.KindResourceExceeded:
		return exitResourceExceeded
	case errkind.KindSandbox, errkind.KindKernelBug, errkind.KindInfrastructure:
		return exitGeneric
	default:
		return exitGeneric
	}
}
