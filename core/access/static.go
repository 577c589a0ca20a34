// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"sync"
)

// StaticProvider is a Provider which signs in a fixed principal, or fails with
// a fixed error. It serves tests and the demo command.
type StaticProvider struct {
	Principal  Principal
	SignInErr  error
	SignOutErr error

	mutex    sync.Mutex
	current  *Principal
	signIns  int
	signOuts int
}

// SignIn implements Provider
func (p *StaticProvider) SignIn(ctx context.Context) (Principal, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.signIns++
	if p.SignInErr != nil {
		return Principal{}, p.SignInErr
	}
	principal := p.Principal
	p.current = &principal
	return principal, nil
}

// SignOut implements Provider
func (p *StaticProvider) SignOut(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.signOuts++
	p.current = nil
	return p.SignOutErr
}

// Current implements Provider
func (p *StaticProvider) Current() *Principal {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.current == nil {
		return nil
	}
	principal := *p.current
	return &principal
}

// Calls returns how often SignIn and SignOut were called
func (p *StaticProvider) Calls() (signIns, signOuts int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.signIns, p.signOuts
}
