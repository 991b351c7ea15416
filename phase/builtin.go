package phase

import "time"

// Names of the built-in phases, in execution order.
const (
	BeforeServiceUnbind = "before-service-unbind"
	ServiceUnbind       = "service-unbind"
	ServiceRequestsDone = "service-requests-done"
	ServiceStop         = "service-stop"
	BeforeProcessExit   = "before-process-exit"
	ProcessExit         = "process-exit"
)

// Builtin returns the default shutdown sequence of a network service:
//
//	before-service-unbind -> service-unbind -> service-requests-done
//	-> service-stop -> before-process-exit -> process-exit
//
// Every phase is recoverable except process-exit. A fresh Set is returned on each
// call so callers may extend it freely.
func Builtin() Set {
	return Set{
		BeforeServiceUnbind: {Name: BeforeServiceUnbind, Recover: true},
		ServiceUnbind: {
			Name:      ServiceUnbind,
			DependsOn: []string{BeforeServiceUnbind},
			Recover:   true,
		},
		ServiceRequestsDone: {
			Name:      ServiceRequestsDone,
			DependsOn: []string{ServiceUnbind},
			Recover:   true,
		},
		ServiceStop: {
			Name:      ServiceStop,
			DependsOn: []string{ServiceRequestsDone},
			Recover:   true,
		},
		BeforeProcessExit: {
			Name:      BeforeProcessExit,
			DependsOn: []string{ServiceStop},
			Recover:   true,
		},
		ProcessExit: {
			Name:      ProcessExit,
			DependsOn: []string{BeforeProcessExit},
			Timeout:   10 * time.Second,
			Recover:   false,
		},
	}
}
