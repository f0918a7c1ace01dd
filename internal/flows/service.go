package flows

import (
	"context"

	"github.com/MrEthical07/bearerAuth/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.Validate != nil && s.deps.Authenticate.Validate != nil
}

func (s Service) Refresh(ctx context.Context, rawRefresh string) RefreshResult {
	return RunRefresh(ctx, rawRefresh, s.deps.Refresh)
}

func (s Service) Authenticate(ctx context.Context, rawAccess string) AuthenticateResult {
	return RunAuthenticate(ctx, rawAccess, s.deps.Authenticate)
}

func (s Service) BuildPrincipal(ctx context.Context, subject string) AuthenticateResult {
	return RunBuildPrincipal(ctx, subject, s.deps.Authenticate)
}

func (s Service) StartSession(ctx context.Context, subject string, role jwt.Role) SessionResult {
	return RunStartSession(ctx, subject, role, s.deps.Session)
}

func (s Service) Logout(ctx context.Context, subject string) error {
	return RunLogout(ctx, subject, s.deps.Session)
}
