// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package core

// Notifier is an interface to receive user-visible failure notices. A notice
// is raised whenever an operation on a mirrored collection fails; the
// mirror itself stays in its last known good state.
type Notifier interface {
	Notify(resource string, operation Operation, err error)
}

// NotifierFunc adapts a plain function to the Notifier interface
type NotifierFunc func(resource string, operation Operation, err error)

// Notify calls f(resource, operation, err)
func (f NotifierFunc) Notify(resource string, operation Operation, err error) {
	f(resource, operation, err)
}
